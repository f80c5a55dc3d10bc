// Package sniffer locates the personalization-widget configuration endpoint
// behind a storefront page. Detection runs a fixed waterfall of strategies and
// falls back to a presence heuristic when no endpoint URL can be found.
package sniffer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/logging"
	"github.com/jonathan/clipart-crawler/internal/retry"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// DefaultPartnerPolicy bounds how long the partner widget globals are awaited.
var DefaultPartnerPolicy = retry.Policy{MaxAttempts: 10, Interval: 500 * time.Millisecond}

// DefaultWatchPolicy bounds how often a still-rendering page is re-sniffed.
var DefaultWatchPolicy = retry.Policy{MaxAttempts: 3, Interval: 2 * time.Second}

// Options configures a Sniffer
type Options struct {
	PartnerPolicy retry.Policy
	// Observed is the live network observer slot, if the page has one.
	Observed *LastSeen
	Logger   *zap.Logger
}

// Sniffer runs detection against pages
type Sniffer struct {
	partnerPolicy retry.Policy
	observed      *LastSeen
	logger        *zap.Logger
}

// recheckPartner reads the partner globals once on passes after the first full poll.
var recheckPartner = retry.Policy{MaxAttempts: 1}

// New creates a Sniffer with the standard detector order.
func New(opts Options) *Sniffer {
	policy := opts.PartnerPolicy
	if policy.MaxAttempts == 0 {
		policy = DefaultPartnerPolicy
	}
	return &Sniffer{
		partnerPolicy: policy,
		observed:      opts.Observed,
		logger:        logging.OrNop(opts.Logger),
	}
}

func (s *Sniffer) runner(partner retry.Policy) *Runner {
	return &Runner{
		Detectors: []Detector{
			partnerDetector{policy: partner},
			observerDetector{slot: s.observed},
			timingDetector{},
			markupDetector{},
			metadataDetector{},
			scriptsDetector{},
		},
		Logger: s.logger,
	}
}

// Sniff runs one detection pass. It never fails: page read errors reduce to
// "not found" and the result always reports the page URL as its origin.
func (s *Sniffer) Sniff(ctx context.Context, page Page) types.DetectionResult {
	return s.sniff(ctx, page, s.partnerPolicy)
}

func (s *Sniffer) sniff(ctx context.Context, page Page, partner retry.Policy) types.DetectionResult {
	snap := newSnapshot(page)
	if result, ok := s.runner(partner).Run(ctx, snap); ok {
		return result
	}

	html, err := snap.HTML(ctx)
	if err == nil && HasWidgetPresence(html) {
		s.logger.Debug("widget present but no endpoint found", zap.String("page", page.URL()))
		return types.PresenceOnly(page.URL())
	}
	return types.NotDetected(page.URL())
}

// Watch re-sniffs page until a ready result appears or the policy is exhausted.
// The partner globals are polled in full on the first pass only.
// Only the final result is persisted, and only when it matched.
func (s *Sniffer) Watch(ctx context.Context, page Page, policy retry.Policy, store bridge.Store) (types.DetectionResult, error) {
	result, _ := retry.Poll(ctx, policy,
		func(ctx context.Context, n int) types.DetectionResult {
			partner := s.partnerPolicy
			if n > 1 {
				partner = recheckPartner
			}
			r := s.sniff(ctx, page, partner)
			s.logger.Debug("sniff attempt",
				zap.Int("attempt", n),
				zap.Bool("matched", r.Matched),
				zap.Bool("ready", r.Ready()))
			return r
		},
		types.DetectionResult.Ready,
	)

	if !result.Matched || store == nil {
		return result, nil
	}
	if err := store.Put(ctx, result); err != nil {
		return result, err
	}
	s.logger.Info("detection stored",
		zap.String("page", result.SourceOrigin),
		zap.String("endpoint", result.EndpointURL),
		zap.String("strategy", result.Strategy))
	return result, nil
}
