// Package schemas holds the JSON Schema documents for persisted artifacts.
package schemas

import "embed"

// Names of the embedded schema documents.
const (
	DetectionResult = "detection_result.schema.json"
	Manifest        = "manifest.schema.json"
)

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
