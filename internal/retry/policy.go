// Package retry provides the fixed-count, fixed-interval polling used while a
// page is still rendering. There is no backoff: exhaustion is final.
package retry

import (
	"context"
	"time"
)

// Policy bounds a polling loop
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Poll calls attempt up to MaxAttempts times, sleeping Interval between calls,
// until done reports true for a value. It returns the last value observed and
// whether done was satisfied. A cancelled context stops polling early.
func Poll[T any](ctx context.Context, p Policy, attempt func(ctx context.Context, n int) T, done func(T) bool) (T, bool) {
	var last T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for n := 1; n <= attempts; n++ {
		last = attempt(ctx, n)
		if done(last) {
			return last, true
		}
		if n == attempts {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, false
		case <-timer.C:
		}
	}
	return last, false
}
