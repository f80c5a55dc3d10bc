package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/events"
	"github.com/jonathan/clipart-crawler/internal/types"
)

func TestPrintDetection(t *testing.T) {
	tests := []struct {
		name   string
		result types.DetectionResult
		want   string
	}{
		{
			name:   "found",
			result: types.Found("https://shop.test/products/mug", "https://sh.medzt.com/a.json", types.SchemaLegacy, "markup"),
			want:   "https://sh.medzt.com/a.json",
		},
		{name: "presence", result: types.PresenceOnly("https://shop.test/products/mug"), want: "Widget present"},
		{name: "nothing", result: types.NotDetected("https://shop.test/products/mug"), want: "No personalization widget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintDetection(tt.result)

			assert.Contains(t, buf.String(), "DETECTION")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintManifest(t *testing.T) {
	b := types.NewManifestBuilder()
	for i := 0; i < 4; i++ {
		b.Add("Colors", types.NewImageRef("https://img.test/c.png", "Color", types.RolePrimary))
	}
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		b.Add(name, types.NewImageRef("https://img.test/"+name+".png", "", types.RolePrimary))
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintManifest(b.Build())
	output := buf.String()

	assert.Contains(t, output, "7 categories, 10 images")
	assert.Contains(t, output, "Colors (4)")
	assert.Contains(t, output, "... and 1 more\n")
	assert.Contains(t, output, "A.png")
	assert.Contains(t, output, "... and 2 more categories")
}

func TestPrintManifest_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintManifest(nil)

	assert.Contains(t, buf.String(), "No images found")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
}

func TestPrintDownload(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDownload(nil)
	assert.Empty(t, buf.String())

	p.PrintDownload(&archive.Stats{Path: "out/mug.zip", SizeBytes: 2048, Downloaded: 9, Failed: 1})
	assert.Contains(t, buf.String(), "out/mug.zip")
	assert.Contains(t, buf.String(), "2.0 kB")
	assert.Contains(t, buf.String(), "Failed:      1")
}

func TestProgressPrinter_TerminalEventsPrintNothing(t *testing.T) {
	var buf bytes.Buffer
	var sink events.Sink = NewProgressPrinter(&buf)

	sink.Progress(types.ProgressEvent{Status: "Parsing images...", Current: 2, Total: 3})
	sink.Complete(nil)
	sink.Error("boom")

	assert.Equal(t, "[ 67%] Parsing images... (2/3)\n", buf.String())
}
