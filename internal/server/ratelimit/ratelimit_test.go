package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig() Config {
	return Config{
		Enabled:       true,
		DefaultLimit:  3,
		DefaultWindow: time.Minute,
		Rules: []Rule{
			{Method: http.MethodPost, Path: "/resolve", Limit: 2, Window: time.Minute, Burst: 2},
			{Method: http.MethodGet, Path: "/archives/", Limit: 1, Window: time.Minute},
		},
	}
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		info := l.Allow("10.0.0.1", http.MethodGet, "/detections")
		require.True(t, info.Allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
	}

	info := l.Allow("10.0.0.1", http.MethodGet, "/detections")
	assert.False(t, info.Allowed)
	assert.Positive(t, info.RetryAfter)
	assert.Zero(t, info.Remaining)
}

func TestLimiter_EndpointRule(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	assert.True(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)
	assert.True(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)
	assert.False(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)

	// Other endpoints and other clients have their own buckets.
	assert.True(t, l.Allow("c", http.MethodGet, "/detections").Allowed)
	assert.True(t, l.Allow("d", http.MethodPost, "/resolve").Allowed)
}

func TestLimiter_PrefixRule(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	assert.True(t, l.Allow("c", http.MethodGet, "/archives/a.zip").Allowed)
	assert.False(t, l.Allow("c", http.MethodGet, "/archives/a.zip").Allowed)
}

func TestLimiter_PrefixRuleSharedAcrossPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	l := NewLimiter(cfg)
	defer l.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	allowed := 0
	for i := 0; i < 200; i++ {
		if l.Allow("c", http.MethodGet, fmt.Sprintf("/archives/a%d.zip", i)).Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)

	// Default-rule buckets stay per path.
	assert.True(t, l.Allow("c", http.MethodGet, "/detections").Allowed)
	assert.True(t, l.Allow("c", http.MethodGet, "/other").Allowed)
}

func TestLimiter_Refill(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(testConfig())
	defer l.Stop()
	l.now = func() time.Time { return now }

	l.Allow("c", http.MethodPost, "/resolve")
	l.Allow("c", http.MethodPost, "/resolve")
	require.False(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)

	now = now.Add(31 * time.Second)
	assert.True(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 50; i++ {
		require.True(t, l.Allow("c", http.MethodGet, "/health").Allowed)
	}
}

func TestLimiter_AllowAndDenyLists(t *testing.T) {
	cfg := testConfig()
	cfg.Allowlist = []string{"127.0.0.1"}
	cfg.Denylist = []string{"6.6.6.6"}
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("127.0.0.1", http.MethodPost, "/resolve").Allowed)
	}
	assert.False(t, l.Allow("6.6.6.6", http.MethodGet, "/health").Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("c", http.MethodPost, "/resolve").Allowed)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.IdleTTL = time.Minute
	l := NewLimiter(cfg)
	defer l.Stop()
	l.now = func() time.Time { return now }

	l.Allow("a", http.MethodGet, "/detections")
	now = now.Add(2 * time.Minute)
	l.Allow("b", http.MethodGet, "/detections")

	assert.Equal(t, 1, l.evictIdle(now))
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_ConcurrentAllowAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.DefaultLimit = 1000
	cfg.CleanupInterval = 10 * time.Millisecond
	l := NewLimiter(cfg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Allow(fmt.Sprintf("client-%d", i), http.MethodGet, "/detections")
			}
		}(i)
	}
	wg.Wait()

	l.Stop()
	l.Stop()
}

func TestMatch(t *testing.T) {
	rules := DefaultRules()

	r, ok := Match(http.MethodPost, "/resolve/stream", rules)
	require.True(t, ok)
	assert.Equal(t, "/resolve/stream", r.Path)

	r, ok = Match(http.MethodGet, "/archives/x.zip", rules)
	require.True(t, ok)
	assert.Equal(t, "/archives/", r.Path)

	r, ok = Match(http.MethodGet, "/health", rules)
	require.True(t, ok)
	assert.Zero(t, r.Limit)

	_, ok = Match(http.MethodGet, "/detections", rules)
	assert.False(t, ok)
}
