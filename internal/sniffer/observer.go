package sniffer

import (
	"sync"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// LastSeen is the single slot a live network observer writes to whenever a
// response URL matches an endpoint signature. Detection reads it first.
type LastSeen struct {
	mu   sync.RWMutex
	url  string
	kind types.SchemaKind
}

// NewLastSeen returns an empty slot.
func NewLastSeen() *LastSeen {
	return &LastSeen{}
}

// Observe records rawURL when it matches a signature and reports whether it did.
// It is safe to call from the browser's event goroutine.
func (l *LastSeen) Observe(rawURL string) bool {
	kind, ok := Classify(rawURL)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = rawURL
	l.kind = kind
	return true
}

// Get returns the most recently observed endpoint.
func (l *LastSeen) Get() (string, types.SchemaKind, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.url, l.kind, l.url != ""
}
