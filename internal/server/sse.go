package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event. Download workers may call it concurrently.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// sseSink forwards run events to the stream. A client that went away is not an error.
type sseSink struct {
	sse *SSEWriter
}

func (s sseSink) Progress(event types.ProgressEvent) {
	s.sse.WriteEvent("progress", event) //nolint:errcheck
}

func (s sseSink) Complete(result any) {
	s.sse.WriteEvent("complete", result) //nolint:errcheck
}

func (s sseSink) Error(message string) {
	s.sse.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}
