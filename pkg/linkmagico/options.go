package linkmagico

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/linkmagico/pkg/cache"
	"github.com/jmylchreest/linkmagico/pkg/extractor"
	"github.com/jmylchreest/linkmagico/pkg/fetcher"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

// FailurePolicy decides whether failed extractions are cached.
type FailurePolicy int

const (
	// RetryFailures never caches a failed extraction, so the next request
	// for the URL fetches again.
	RetryFailures FailurePolicy = iota
	// CacheFailures caches failures for the TTL like successes.
	CacheFailures
)

func (p FailurePolicy) String() string {
	switch p {
	case CacheFailures:
		return "cache"
	default:
		return "retry"
	}
}

// ParseFailurePolicy parses "retry" or "cache".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry", "":
		return RetryFailures, nil
	case "cache":
		return CacheFailures, nil
	default:
		return RetryFailures, fmt.Errorf("unknown failure policy: %s (use retry or cache)", s)
	}
}

// Config holds all LinkMagico configuration.
type Config struct {
	// Fetching
	Fetcher     fetcher.Fetcher // overrides FetchMode when set
	FetchMode   fetcher.Mode
	Timeout     time.Duration
	RenderJS    bool
	UserAgent   string
	MaxBodySize int
	ChromePath  string

	// Caching
	Cache         *cache.Cache[product.Result] // overrides CacheTTL when set
	CacheTTL      time.Duration
	FailurePolicy FailurePolicy

	// Extraction
	Rules    *extractor.Rules
	Defaults product.Defaults

	Now       func() time.Time
	Observers []ExtractionObserver
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchMode:     fetcher.ModeStatic,
		Timeout:       30 * time.Second,
		UserAgent:     fetcher.DefaultUserAgent,
		CacheTTL:      30 * time.Minute,
		FailurePolicy: RetryFailures,
		Defaults:      product.DefaultDefaults(),
		Now:           time.Now,
	}
}

// Option configures LinkMagico.
type Option func(*Config)

// WithFetcher injects the page fetcher. LinkMagico takes ownership and
// closes it on Close.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithFetchMode selects the built-in fetcher (static, dynamic, auto).
func WithFetchMode(mode fetcher.Mode) Option {
	return func(c *Config) {
		c.FetchMode = mode
	}
}

// WithCache injects the result cache.
func WithCache(rc *cache.Cache[product.Result]) Option {
	return func(c *Config) {
		c.Cache = rc
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRenderJS asks the fetcher to render pages in a browser.
func WithRenderJS(enabled bool) Option {
	return func(c *Config) {
		c.RenderJS = enabled
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithMaxBodySize limits the size of fetched pages in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithChromePath sets the browser binary used by the dynamic fetcher.
func WithChromePath(path string) Option {
	return func(c *Config) {
		c.ChromePath = path
	}
}

// WithCacheTTL sets the lifetime of cached results. Ignored when a cache is
// injected with WithCache.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = d
	}
}

// WithFailurePolicy sets whether failures are cached.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Config) {
		c.FailurePolicy = p
	}
}

// WithRules replaces the extraction rules.
func WithRules(r extractor.Rules) Option {
	return func(c *Config) {
		c.Rules = &r
	}
}

// WithDefaults sets the fallback literals. Empty fields keep the built-in
// values.
func WithDefaults(d product.Defaults) Option {
	return func(c *Config) {
		c.Defaults = d
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithObserver adds an extraction observer.
func WithObserver(obs ExtractionObserver) Option {
	return func(c *Config) {
		c.Observers = append(c.Observers, obs)
	}
}
