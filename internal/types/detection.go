// Package types provides type definitions for structured data used throughout the clipart-crawler system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// SchemaKind identifies the structural shape of a vendor configuration payload
type SchemaKind string

const (
	// SchemaLegacy is the original medzt.com clipart category tree
	SchemaLegacy SchemaKind = "legacy"
	// SchemaUnified is the flat options/values "unified settings" format
	SchemaUnified SchemaKind = "unified"
	// SchemaPartner is the partner customization-form format
	SchemaPartner SchemaKind = "partner"
	// SchemaNone means no schema was classified
	SchemaNone SchemaKind = ""
)

// Valid reports whether k is one of the three known schema kinds.
func (k SchemaKind) Valid() bool {
	switch k {
	case SchemaLegacy, SchemaUnified, SchemaPartner:
		return true
	default:
		return false
	}
}

// ParseSchemaKind converts user input into a SchemaKind.
// "old" is accepted as an alias for legacy.
func ParseSchemaKind(s string) (SchemaKind, bool) {
	switch s {
	case "legacy", "old":
		return SchemaLegacy, true
	case "unified":
		return SchemaUnified, true
	case "partner", "buildyou":
		return SchemaPartner, true
	default:
		return SchemaNone, false
	}
}

// DetectionResult is the outcome of one endpoint detection attempt for a page.
// Values are superseded, never mutated: build them with NotDetected, PresenceOnly or Found.
type DetectionResult struct {
	Matched      bool       `json:"matched"`
	EndpointURL  string     `json:"endpoint_url,omitempty"`
	SchemaKind   SchemaKind `json:"schema_kind,omitempty"`
	SourceOrigin string     `json:"source_origin"`
	Strategy     string     `json:"strategy,omitempty"`
	DetectedAt   time.Time  `json:"detected_at"`
}

// NotDetected returns a result for a page with no endpoint and no presence signal.
func NotDetected(origin string) DetectionResult {
	return DetectionResult{SourceOrigin: origin, DetectedAt: time.Now().UTC()}
}

// PresenceOnly returns a matched result without an endpoint.
// Callers treat it as "keep trying", not as ready.
func PresenceOnly(origin string) DetectionResult {
	return DetectionResult{Matched: true, SourceOrigin: origin, DetectedAt: time.Now().UTC()}
}

// Found returns a matched result carrying an endpoint and its schema kind.
func Found(origin, endpointURL string, kind SchemaKind, strategy string) DetectionResult {
	return DetectionResult{
		Matched:      true,
		EndpointURL:  endpointURL,
		SchemaKind:   kind,
		SourceOrigin: origin,
		Strategy:     strategy,
		DetectedAt:   time.Now().UTC(),
	}
}

// Ready reports whether the result can be used to fetch a configuration.
func (d DetectionResult) Ready() bool {
	return d.Matched && d.EndpointURL != ""
}

// AppliesTo reports whether the result was recorded for pageURL.
func (d DetectionResult) AppliesTo(pageURL string) bool {
	return d.SourceOrigin != "" && d.SourceOrigin == pageURL
}

// PartnerIDs are the identifiers the partner widget exposes on the page
type PartnerIDs struct {
	Slug  string `json:"slug"`
	Store string `json:"store"`
}

// Complete reports whether both identifiers are present.
func (p PartnerIDs) Complete() bool {
	return p.Slug != "" && p.Store != ""
}
