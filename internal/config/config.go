// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/retry"
	"github.com/jonathan/clipart-crawler/internal/server/ratelimit"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "CLIPART_"

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from CLI flags.
// Durations are Go duration strings such as "500ms" or "2s".
type Config struct {
	// Resolution
	URL                string `json:"url,omitempty" validate:"omitempty,url"`
	SkipThumbnails     bool   `json:"skip_thumbnails,omitempty"`
	OrganizeByCategory bool   `json:"organize_by_category,omitempty"`
	// Archives are written under <output_dir>/shopify-personalization
	OutputDir   string `json:"output_dir,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" validate:"gte=0,lte=32"`

	// Detection
	BrowserTimeout  string `json:"browser_timeout,omitempty"`
	WatchAttempts   int    `json:"watch_attempts,omitempty" validate:"gte=0,lte=20"`
	WatchInterval   string `json:"watch_interval,omitempty"`
	PartnerAttempts int    `json:"partner_attempts,omitempty" validate:"gte=0,lte=100"`
	PartnerInterval string `json:"partner_interval,omitempty"`

	// Persistence bridge
	Bridge      string `json:"bridge,omitempty" validate:"omitempty,oneof=memory file postgres"`
	BridgePath  string `json:"bridge_path,omitempty" validate:"required_if=Bridge file"`
	DatabaseURL string `json:"database_url,omitempty" validate:"required_if=Bridge postgres"`

	// Server
	Port               int  `json:"port,omitempty" validate:"gte=0,lte=65535"`
	RateLimitDisabled  bool `json:"rate_limit_disabled,omitempty"`
	RateLimitPerMinute int  `json:"rate_limit_per_minute,omitempty" validate:"gte=0"`

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		OutputDir:          ".",
		Concurrency:        4,
		BrowserTimeout:     "45s",
		WatchAttempts:      3,
		WatchInterval:      "2s",
		PartnerAttempts:    10,
		PartnerInterval:    "500ms",
		Bridge:             string(bridge.KindFile),
		BridgePath:         filepath.Join(".clipart", "detection.json"),
		Port:               8080,
		RateLimitPerMinute: 600,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads CLIPART_* variables. Unparseable numbers are reported, not ignored.
func FromEnv() (Config, error) {
	var cfg Config
	var errs []error

	str := func(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }
	num := func(key string) int {
		v := str(key)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		}
		return n
	}
	flag := func(key string) bool {
		v := str(key)
		if v == "" {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		}
		return b
	}

	cfg.OutputDir = str("OUTPUT_DIR")
	cfg.Concurrency = num("CONCURRENCY")
	cfg.BrowserTimeout = str("BROWSER_TIMEOUT")
	cfg.WatchAttempts = num("WATCH_ATTEMPTS")
	cfg.WatchInterval = str("WATCH_INTERVAL")
	cfg.PartnerAttempts = num("PARTNER_ATTEMPTS")
	cfg.PartnerInterval = str("PARTNER_INTERVAL")
	cfg.Bridge = str("BRIDGE")
	cfg.BridgePath = str("BRIDGE_PATH")
	cfg.DatabaseURL = str("DATABASE_URL")
	cfg.Port = num("PORT")
	cfg.RateLimitDisabled = flag("RATE_LIMIT_DISABLED")
	cfg.RateLimitPerMinute = num("RATE_LIMIT_PER_MINUTE")
	cfg.Verbose = flag("VERBOSE")

	return cfg, errors.Join(errs...)
}

// newValidator reports fields by their JSON key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
// Required flags are checked by the commands after merging.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config error: '%s' failed '%s'", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	durations := []struct{ name, value string }{
		{"browser_timeout", c.BrowserTimeout},
		{"watch_interval", c.WatchInterval},
		{"partner_interval", c.PartnerInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("config error: '%s' is not a duration: %w", d.name, err)
		}
		if parsed < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", d.name)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer config file values over the environment and built-ins.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	str := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	num := func(field *int, def int) {
		if *field == 0 {
			*field = def
		}
	}

	str(&result.URL, defaults.URL)
	str(&result.OutputDir, defaults.OutputDir)
	str(&result.BrowserTimeout, defaults.BrowserTimeout)
	str(&result.WatchInterval, defaults.WatchInterval)
	str(&result.PartnerInterval, defaults.PartnerInterval)
	str(&result.Bridge, defaults.Bridge)
	str(&result.BridgePath, defaults.BridgePath)
	str(&result.DatabaseURL, defaults.DatabaseURL)

	num(&result.Concurrency, defaults.Concurrency)
	num(&result.WatchAttempts, defaults.WatchAttempts)
	num(&result.PartnerAttempts, defaults.PartnerAttempts)
	num(&result.Port, defaults.Port)
	num(&result.RateLimitPerMinute, defaults.RateLimitPerMinute)

	// Bools are sticky once any layer enables them.
	result.SkipThumbnails = result.SkipThumbnails || defaults.SkipThumbnails
	result.OrganizeByCategory = result.OrganizeByCategory || defaults.OrganizeByCategory
	result.RateLimitDisabled = result.RateLimitDisabled || defaults.RateLimitDisabled
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Load layers the optional config file over the environment over Defaults and validates the result.
func Load(path string) (Config, error) {
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg := env.MergeWithDefaults(Defaults())

	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = file.MergeWithDefaults(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || value == "" {
		return fallback
	}
	return d
}

// BrowserTimeoutDuration returns the page load timeout for headless detection.
func (c Config) BrowserTimeoutDuration() time.Duration {
	return duration(c.BrowserTimeout, 45*time.Second)
}

// WatchPolicy bounds how often a page is re-sniffed.
func (c Config) WatchPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.WatchAttempts, Interval: duration(c.WatchInterval, 2*time.Second)}
}

// PartnerPolicy bounds how long the partner widget globals are awaited.
func (c Config) PartnerPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.PartnerAttempts, Interval: duration(c.PartnerInterval, 500*time.Millisecond)}
}

// BridgeConfig selects the persistence bridge store.
func (c Config) BridgeConfig() bridge.Config {
	return bridge.Config{Kind: bridge.Kind(c.Bridge), Path: c.BridgePath, DatabaseURL: c.DatabaseURL}
}

// RateLimit builds the API rate limiting configuration.
func (c Config) RateLimit() ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Enabled = !c.RateLimitDisabled
	if c.RateLimitPerMinute > 0 {
		rl.DefaultLimit = c.RateLimitPerMinute
	}
	return rl
}
