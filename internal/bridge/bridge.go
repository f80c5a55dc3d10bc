// Package bridge is the single-slot store that hands detection results from the
// sniffer to the resolution orchestrator. The last write wins; there is no TTL.
// Staleness is decided by the reader comparing the stored page identity.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// Store is the persistence bridge contract
type Store interface {
	// Put replaces the stored result.
	Put(ctx context.Context, result types.DetectionResult) error
	// Get returns the last written result; ok is false when the slot is empty.
	Get(ctx context.Context) (result types.DetectionResult, ok bool, err error)
}

// Kind selects a Store implementation
type Kind string

const (
	// KindMemory keeps the slot in process memory
	KindMemory Kind = "memory"
	// KindFile keeps the slot in a JSON file
	KindFile Kind = "file"
	// KindPostgres keeps the slot in a single-row PostgreSQL table
	KindPostgres Kind = "postgres"
)

// Config describes which store to open
type Config struct {
	Kind        Kind
	Path        string // KindFile
	DatabaseURL string // KindPostgres
}

// Open returns the store described by cfg. Release it with CloseStore.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file bridge requires a path")
		}
		return NewFile(cfg.Path), nil
	case KindPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres bridge requires a database URL")
		}
		return ConnectPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown bridge kind %q", cfg.Kind)
	}
}

// Memory is an in-process Store
type Memory struct {
	mu     sync.RWMutex
	result types.DetectionResult
	set    bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Put implements Store
func (m *Memory) Put(_ context.Context, result types.DetectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
	m.set = true
	return nil
}

// Get implements Store
func (m *Memory) Get(_ context.Context) (types.DetectionResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result, m.set, nil
}

// CloseStore releases resources held by stores backed by a connection pool.
func CloseStore(s Store) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
