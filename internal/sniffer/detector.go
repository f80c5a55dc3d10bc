package sniffer

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/logging"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// Detector is one strategy in the detection waterfall
type Detector interface {
	Name() string
	// Attempt returns a found result, or false when the strategy has nothing.
	// Page read failures count as nothing found.
	Attempt(ctx context.Context, page Page) (types.DetectionResult, bool)
}

// Runner tries detectors in order; the first success wins.
type Runner struct {
	Detectors []Detector
	Logger    *zap.Logger
}

// Run executes the waterfall against page.
func (r *Runner) Run(ctx context.Context, page Page) (types.DetectionResult, bool) {
	logger := logging.OrNop(r.Logger)

	for _, d := range r.Detectors {
		if ctx.Err() != nil {
			return types.DetectionResult{}, false
		}
		result, ok := d.Attempt(ctx, page)
		if !ok {
			logger.Debug("detector found nothing", zap.String("detector", d.Name()))
			continue
		}
		logger.Debug("detector matched",
			zap.String("detector", d.Name()),
			zap.String("endpoint", result.EndpointURL),
			zap.String("schema", string(result.SchemaKind)))
		return result, true
	}
	return types.DetectionResult{}, false
}
