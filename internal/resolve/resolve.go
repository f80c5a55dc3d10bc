// Package resolve turns a product page URL into an image manifest. A run moves
// through locate, fetch and parse in order, reports progress at the start of
// each step and ends with exactly one terminal event.
package resolve

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/events"
	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/logging"
	"github.com/jonathan/clipart-crawler/internal/normalize"
	"github.com/jonathan/clipart-crawler/internal/sniffer"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// How the endpoint was located
const (
	LocatedByBridge   = "bridge"
	LocatedByFallback = "page_fallback"
)

// Options holds the two user-facing switches
type Options struct {
	SkipThumbnails bool `json:"skip_thumbnails"`
	// OrganizeByCategory only affects the archive layout.
	OrganizeByCategory bool `json:"organize_by_category"`
}

// Result is the payload of a successful run
type Result struct {
	RunID       uuid.UUID        `json:"run_id"`
	PageURL     string           `json:"page_url"`
	EndpointURL string           `json:"endpoint_url"`
	SchemaKind  types.SchemaKind `json:"schema_kind"`
	LocatedBy   string           `json:"located_by"`
	types.Counts
	TotalSteps int             `json:"total_steps"`
	Manifest   *types.Manifest `json:"categories"`
	Download   *archive.Stats  `json:"download,omitempty"`
}

// Resolver runs resolutions. Bridge and Sink may be nil.
type Resolver struct {
	Bridge  bridge.Store
	Fetcher fetch.Fetcher
	Sink    events.Sink
	Logger  *zap.Logger
}

func (r *Resolver) sink() events.Sink {
	if r.Sink == nil {
		return events.Discard
	}
	return r.Sink
}

func (r *Resolver) logger() *zap.Logger {
	return logging.OrNop(r.Logger)
}

// Resolve locates, fetches and normalizes the configuration behind pageURL.
// Progress closes at current == total; the sink then receives Complete(result)
// or Error(message), never both, and nothing once ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, pageURL string, opts Options) (*Result, error) {
	runID := uuid.New()
	t := newTracker(runID.String(), r.sink())

	result, err := r.resolve(ctx, runID, pageURL, opts, t)
	if err != nil {
		r.fail(ctx, err)
		return nil, err
	}
	t.emit(StatusComplete, result.TotalSteps)
	r.sink().Complete(result)
	return result, nil
}

// Run resolves pageURL and then packages every image with packager.
// Download progress continues on the same scale and ends with current == total.
func (r *Resolver) Run(ctx context.Context, pageURL string, opts Options, packager *archive.Packager) (*Result, error) {
	runID := uuid.New()
	t := newTracker(runID.String(), r.sink())

	result, err := r.resolve(ctx, runID, pageURL, opts, t)
	if err != nil {
		r.fail(ctx, err)
		return nil, err
	}

	stats, err := packager.Package(ctx, result.Manifest, pageURL,
		archive.Options{OrganizeByCategory: opts.OrganizeByCategory},
		func(status string, downloaded int) {
			t.emit(status, InitialSteps+downloaded)
		})
	if err != nil {
		r.logger().Error("packaging failed", zap.String("run_id", runID.String()), zap.Error(err))
		r.fail(ctx, err)
		return nil, err
	}

	result.Download = stats
	t.emit(StatusComplete, result.TotalSteps)
	r.sink().Complete(result)
	return result, nil
}

// fail reports err as the terminal event unless the caller abandoned the run.
func (r *Resolver) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	r.sink().Error(err.Error())
}

func (r *Resolver) resolve(ctx context.Context, runID uuid.UUID, pageURL string, opts Options, t *tracker) (*Result, error) {
	logger := r.logger().With(zap.String("run_id", runID.String()), zap.String("page", pageURL))

	t.enter(stepLocate)
	endpoint, kind, via, err := r.locate(ctx, pageURL, logger)
	if err != nil {
		logger.Warn("configuration endpoint not found", zap.Error(err))
		return nil, err
	}
	logger.Info("configuration endpoint located",
		zap.String("endpoint", endpoint),
		zap.String("schema", string(kind)),
		zap.String("via", via))

	t.enter(stepFetch)
	payload, err := r.fetchConfig(ctx, endpoint)
	if err != nil {
		logger.Error("configuration fetch failed", zap.Error(err))
		return nil, err
	}

	t.enter(stepParse)
	tree := normalize.Normalize(payload, kind, opts.SkipThumbnails)
	manifest := normalize.Flatten(tree)
	counts := manifest.Counts()
	total := InitialSteps + counts.TotalImages

	t.setTotal(total)
	t.emit(StatusStartingDownload, InitialSteps)

	logger.Info("configuration parsed",
		zap.Int("categories", counts.TotalCategories),
		zap.Int("images", counts.TotalImages))

	return &Result{
		RunID:       runID,
		PageURL:     pageURL,
		EndpointURL: endpoint,
		SchemaKind:  kind,
		LocatedBy:   via,
		Counts:      counts,
		TotalSteps:  total,
		Manifest:    manifest,
	}, nil
}

// locate reads the bridge once and falls back to searching the page HTML for a legacy endpoint.
func (r *Resolver) locate(ctx context.Context, pageURL string, logger *zap.Logger) (string, types.SchemaKind, string, error) {
	if r.Bridge != nil {
		stored, ok, err := r.Bridge.Get(ctx)
		switch {
		case err != nil:
			logger.Warn("bridge read failed", zap.Error(err))
		case ok && stored.AppliesTo(pageURL) && stored.Ready():
			kind := stored.SchemaKind
			if !kind.Valid() {
				kind = types.SchemaLegacy
			}
			return stored.EndpointURL, kind, LocatedByBridge, nil
		case ok:
			logger.Debug("stored detection not usable",
				zap.String("stored_page", stored.SourceOrigin),
				zap.Bool("ready", stored.Ready()))
		}
	}

	res, err := r.Fetcher.Get(ctx, pageURL)
	if res == nil {
		return "", types.SchemaNone, "", &DetectionError{PageURL: pageURL, Cause: err}
	}
	endpoint := sniffer.LegacyPagePattern.FindString(res.Text())
	if endpoint == "" {
		return "", types.SchemaNone, "", &DetectionError{PageURL: pageURL, Cause: err}
	}
	return endpoint, types.SchemaLegacy, LocatedByFallback, nil
}

func (r *Resolver) fetchConfig(ctx context.Context, endpoint string) (any, error) {
	res, err := r.Fetcher.Get(ctx, endpoint)
	if err != nil {
		fe := &FetchError{URL: endpoint, Cause: err}
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) {
			fe.StatusCode = fetchErr.StatusCode
			fe.Body = fetchErr.Body
		}
		return nil, fe
	}

	payload, err := normalize.Decode(res.Body)
	if err != nil {
		return nil, &FetchError{URL: endpoint, StatusCode: res.StatusCode, Cause: err}
	}
	return payload, nil
}
