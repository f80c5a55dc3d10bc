// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDetection outputs a detection result.
func (p *Printer) PrintDetection(result types.DetectionResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page:      %s\n", result.SourceOrigin)
	switch {
	case result.Ready():
		fmt.Fprintf(&sb, "Endpoint:  %s\n", result.EndpointURL)
		fmt.Fprintf(&sb, "Schema:    %s\n", result.SchemaKind)
		fmt.Fprintf(&sb, "Strategy:  %s", result.Strategy)
	case result.Matched:
		sb.WriteString("Widget present, endpoint not found yet")
	default:
		sb.WriteString("No personalization widget detected")
	}
	p.printBox("DETECTION", sb.String())
}

// PrintManifest outputs category paths with image counts and the first few labels.
func (p *Printer) PrintManifest(manifest *types.Manifest) {
	if manifest == nil || manifest.Len() == 0 {
		p.printBox("MANIFEST", "No images found")
		return
	}

	counts := manifest.Counts()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d categories, %d images\n", counts.TotalCategories, counts.TotalImages)

	paths := manifest.Paths()
	shown := min(len(paths), maxItemsToShow)
	for _, path := range paths[:shown] {
		images := manifest.Images(path)
		fmt.Fprintf(&sb, "\n%s (%d)\n", path, len(images))
		for _, img := range images[:min(len(images), 3)] {
			label := img.DisplayLabel
			if label == "" {
				label = img.DerivedFilename
			}
			fmt.Fprintf(&sb, "  • %s\n", label)
		}
		if len(images) > 3 {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(images)-3)
		}
	}
	if len(paths) > shown {
		fmt.Fprintf(&sb, "\n... and %d more categories", len(paths)-shown)
	}

	p.printBox("MANIFEST", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDownload outputs archive statistics.
func (p *Printer) PrintDownload(stats *archive.Stats) {
	if stats == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Archive:     %s\n", stats.Path)
	fmt.Fprintf(&sb, "Size:        %s\n", humanize.Bytes(uint64(stats.SizeBytes)))
	fmt.Fprintf(&sb, "Downloaded:  %d\n", stats.Downloaded)
	fmt.Fprintf(&sb, "Failed:      %d", stats.Failed)
	p.printBox("DOWNLOAD", sb.String())
}
