package resolve

import (
	"sync"

	"github.com/jonathan/clipart-crawler/internal/events"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// InitialSteps is the number of bookkeeping steps before per-image progress.
const InitialSteps = 3

// Step is one stage of a resolution run
type Step struct {
	Name   string
	Index  int
	Status string
}

// Steps run strictly in this order.
var Steps = []Step{
	{Name: "locate_endpoint", Index: 0, Status: "Finding configuration..."},
	{Name: "fetch_config", Index: 1, Status: "Fetching configuration..."},
	{Name: "parse_images", Index: 2, Status: "Parsing images..."},
}

const (
	stepLocate = iota
	stepFetch
	stepParse
)

// Status lines after the three steps
const (
	StatusStartingDownload = "Starting download..."
	StatusComplete         = "Complete!"
)

// tracker emits progress for one run. Current never decreases, even when
// download workers report out of order.
type tracker struct {
	runID string
	sink  events.Sink

	mu      sync.Mutex
	current int
	total   int
}

func newTracker(runID string, sink events.Sink) *tracker {
	return &tracker{runID: runID, sink: sink, total: InitialSteps}
}

func (t *tracker) enter(step int) {
	t.emit(Steps[step].Status, Steps[step].Index)
}

func (t *tracker) setTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

func (t *tracker) emit(status string, current int) {
	t.mu.Lock()
	if current < t.current {
		current = t.current
	}
	if current > t.total {
		current = t.total
	}
	t.current = current
	event := types.ProgressEvent{RunID: t.runID, Status: status, Current: current, Total: t.total}
	t.mu.Unlock()

	t.sink.Progress(event)
}
