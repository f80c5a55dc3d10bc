package ratelimit

import (
	"net/http"
	"time"
)

// Rule limits one endpoint. Paths ending in "/" match by prefix.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Allowlist       []string
	Denylist        []string
	Rules           []Rule
}

// DefaultConfig returns limits sized for a single-user local service.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the per-endpoint limits.
// Resolution fetches remote configs and images, so it is the strictest tier.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Path: "/resolve", Limit: 30, Window: time.Minute, Burst: 5},
		{Method: http.MethodPost, Path: "/resolve/stream", Limit: 30, Window: time.Minute, Burst: 5},
		{Method: http.MethodPost, Path: "/detections", Limit: 120, Window: time.Minute, Burst: 20},
		{Method: http.MethodGet, Path: "/archives/", Limit: 60, Window: time.Minute, Burst: 10},
	}
}
