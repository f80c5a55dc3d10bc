package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonathan/clipart-crawler/internal/schemas"
	"github.com/jonathan/clipart-crawler/internal/types"
	rootschemas "github.com/jonathan/clipart-crawler/schemas"
)

// File persists the slot as a JSON document so separate processes (the
// detect command and a later resolve) can share it.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store backed by the JSON file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Put writes result atomically via a temp file and rename.
func (f *File) Put(_ context.Context, result types.DetectionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal detection result: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create bridge directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".detection-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write detection result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Get reads the slot. A missing file, or one that fails schema validation,
// reads as empty so a corrupt slot degrades to re-derivation.
func (f *File) Get(_ context.Context) (types.DetectionResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return types.DetectionResult{}, false, nil
	}
	if err != nil {
		return types.DetectionResult{}, false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	if err := schemas.Validate(rootschemas.DetectionResult, data); err != nil {
		return types.DetectionResult{}, false, nil
	}

	var result types.DetectionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return types.DetectionResult{}, false, nil
	}
	return result, true, nil
}
