package observability

import (
	"fmt"
	"io"
	"sync"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// ProgressPrinter is an events.Sink that writes one line per event.
type ProgressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewProgressPrinter creates a ProgressPrinter writing to out
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out}
}

// Progress implements events.Sink
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *ProgressPrinter) Progress(event types.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%3d%%] %s (%d/%d)\n", event.Percent(), event.Status, event.Current, event.Total)
}

// Complete implements events.Sink. The caller prints the result itself.
func (p *ProgressPrinter) Complete(any) {}

// Error implements events.Sink. The caller returns the error and prints it once.
func (p *ProgressPrinter) Error(string) {}
