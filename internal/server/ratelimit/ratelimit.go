// Package ratelimit limits API requests per client and endpoint using
// golang.org/x/time/rate token buckets.
package ratelimit

import (
	"math"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info describes the limit applied to one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	rule     Rule
	lastSeen time.Time
}

// Limiter tracks one bucket per client, method and path.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// NewLimiter creates a limiter and starts idle-bucket cleanup when configured.
// Call Stop to release the cleanup goroutine.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.cleanupLoop()
	}
	return l
}

// Allow reports whether a request from clientID may proceed.
func (l *Limiter) Allow(clientID, method, path string) Info {
	if !l.cfg.Enabled || slices.Contains(l.cfg.Allowlist, clientID) {
		return Info{Allowed: true}
	}
	if slices.Contains(l.cfg.Denylist, clientID) {
		return Info{Allowed: false}
	}

	rule, ok := Match(method, path, l.cfg.Rules)
	if !ok {
		rule = Rule{Method: method, Path: path, Limit: l.cfg.DefaultLimit, Window: l.cfg.DefaultWindow, Burst: l.cfg.DefaultLimit}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Info{Allowed: true}
	}

	now := l.now()
	// Matched rules share one bucket per client; prefix rules cover every path under them.
	b := l.bucket(clientID+"|"+rule.Method+"|"+rule.Path, rule, now)

	info := Info{Limit: rule.Limit}
	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
		r.CancelAt(now)
		info.RetryAfter = delay
		info.ResetTime = now.Add(delay)
	} else {
		info.Allowed = true
		info.ResetTime = now
	}
	info.Remaining = int(math.Max(0, math.Floor(b.limiter.TokensAt(now))))
	return info
}

func (l *Limiter) bucket(key string, rule Rule, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := rule.Burst
		if burst <= 0 {
			burst = rule.Limit
		}
		every := rule.Window / time.Duration(rule.Limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), burst), rule: rule}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(l.now())
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used within IdleTTL of now.
func (l *Limiter) evictIdle(now time.Time) int {
	ttl := l.cfg.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > ttl {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.stop != nil {
			close(l.stop)
			<-l.done
		}
	})
}
