package types

// ProgressEvent is one step of a resolution run as seen by the UI.
// Current never decreases within a run; the final event has Current == Total.
type ProgressEvent struct {
	RunID   string `json:"run_id,omitempty"`
	Status  string `json:"status"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// Percent returns the rounded completion percentage, 0 when Total is zero.
func (p ProgressEvent) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Current*100 + p.Total/2) / p.Total
}
