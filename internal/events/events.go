// Package events carries fire-and-forget notifications from a resolution run
// to whoever is listening. A missing listener is never an error.
package events

import (
	"sync"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// Sink receives progress and exactly one terminal event per run
type Sink interface {
	Progress(event types.ProgressEvent)
	Complete(result any)
	Error(message string)
}

// Funcs adapts plain functions to a Sink. Nil fields are skipped.
type Funcs struct {
	OnProgress func(types.ProgressEvent)
	OnComplete func(any)
	OnError    func(string)
}

// Progress implements Sink
func (f Funcs) Progress(event types.ProgressEvent) {
	if f.OnProgress != nil {
		f.OnProgress(event)
	}
}

// Complete implements Sink
func (f Funcs) Complete(result any) {
	if f.OnComplete != nil {
		f.OnComplete(result)
	}
}

// Error implements Sink
func (f Funcs) Error(message string) {
	if f.OnError != nil {
		f.OnError(message)
	}
}

// Discard drops every event.
var Discard Sink = Funcs{}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	progress  []types.ProgressEvent
	completed []any
	errors    []string
}

// Progress implements Sink
func (r *Recorder) Progress(event types.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, event)
}

// Complete implements Sink
func (r *Recorder) Complete(result any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, result)
}

// Error implements Sink
func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

// ProgressEvents returns a copy of the recorded progress events.
func (r *Recorder) ProgressEvents() []types.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ProgressEvent(nil), r.progress...)
}

// Completions returns a copy of the recorded completion payloads.
func (r *Recorder) Completions() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.completed...)
}

// Errors returns a copy of the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}
