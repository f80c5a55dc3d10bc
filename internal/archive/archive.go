// Package archive downloads every image in a manifest and packages them into one zip.
// A failed image is counted and skipped; it never aborts the run.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/logging"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// DefaultConcurrency bounds simultaneous image downloads.
const DefaultConcurrency = 4

// Options configures one packaging run
type Options struct {
	OrganizeByCategory bool
}

// Stats summarizes a packaging run
type Stats struct {
	Downloaded int    `json:"downloaded"`
	Failed     int    `json:"failed"`
	Name       string `json:"archive_name"`
	Path       string `json:"-"`
	SizeBytes  int64  `json:"size_bytes"`
}

// ProgressFunc receives a status line and the number of images downloaded so far.
type ProgressFunc func(status string, downloaded int)

// Packager fetches manifest images and writes the archive
type Packager struct {
	Fetcher     fetch.Fetcher
	Dir         string
	Concurrency int
	Logger      *zap.Logger
	// Now is overridden in tests.
	Now func() time.Time
}

// Error reports a failure writing the archive itself.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("archive error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("archive error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type job struct {
	category string
	index    int
	ref      types.ImageRef
}

// Package downloads every image of manifest and writes the zip under Dir/OutputDir.
// A cancelled ctx returns ctx.Err() and writes nothing.
func (p *Packager) Package(ctx context.Context, manifest *types.Manifest, pageURL string, opts Options, progress ProgressFunc) (*Stats, error) {
	logger := logging.OrNop(p.Logger)
	if progress == nil {
		progress = func(string, int) {}
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	var jobs []job
	manifest.Each(func(path string, refs []types.ImageRef) {
		for i, ref := range refs {
			jobs = append(jobs, job{category: path, index: i, ref: ref})
		}
	})

	bodies := p.download(ctx, jobs, progress, logger)
	if err := ctx.Err(); err != nil {
		logger.Info("packaging abandoned", zap.Error(err))
		return nil, err
	}

	stats := &Stats{Name: ArchiveName(pageURL, now())}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, j := range jobs {
		if bodies[i] == nil {
			stats.Failed++
			continue
		}
		w, err := zw.Create(EntryName(j.category, j.index, j.ref, opts.OrganizeByCategory))
		if err != nil {
			return nil, &Error{Message: "failed to add zip entry", Cause: err}
		}
		if _, err := w.Write(bodies[i]); err != nil {
			return nil, &Error{Message: "failed to write zip entry", Cause: err}
		}
		stats.Downloaded++
	}

	progress(fmt.Sprintf("Generating ZIP file... (%d images)", stats.Downloaded), stats.Downloaded)
	if err := zw.Close(); err != nil {
		return nil, &Error{Message: "failed to finalize zip", Cause: err}
	}

	dir := filepath.Join(p.Dir, OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Message: "failed to create output directory", Cause: err}
	}
	stats.Path = filepath.Join(dir, stats.Name)
	stats.SizeBytes = int64(buf.Len())
	if err := os.WriteFile(stats.Path, buf.Bytes(), 0o644); err != nil {
		return nil, &Error{Message: "failed to write archive", Cause: err}
	}

	logger.Info("archive written",
		zap.String("path", stats.Path),
		zap.String("size", humanize.Bytes(uint64(stats.SizeBytes))),
		zap.Int("downloaded", stats.Downloaded),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// download fetches every job with bounded concurrency. bodies[i] is nil when job i failed.
func (p *Packager) download(ctx context.Context, jobs []job, progress ProgressFunc, logger *zap.Logger) [][]byte {
	limit := p.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	bodies := make([][]byte, len(jobs))
	var mu sync.Mutex
	downloaded := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, j := range jobs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := p.Fetcher.Get(gctx, j.ref.SourceURL)
			if err != nil {
				logger.Warn("image download failed", zap.String("url", j.ref.SourceURL), zap.Error(err))
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			bodies[i] = res.Body
			downloaded++
			progress(fmt.Sprintf("Downloading %s...", j.category), downloaded)
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()
	return bodies
}
