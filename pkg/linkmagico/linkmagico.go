// Package linkmagico is the public API for turning a sales-page URL into a
// cached, display-ready product description.
package linkmagico

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/pkg/cache"
	"github.com/jmylchreest/linkmagico/pkg/extractor"
	"github.com/jmylchreest/linkmagico/pkg/fetcher"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

// ErrInvalidURL is reported (as a fetch failure) for blank URLs and URLs
// that are not absolute http(s) addresses.
var ErrInvalidURL = errors.New("invalid URL")

// LinkMagico fetches, extracts and caches product descriptions. It is safe
// for concurrent use.
type LinkMagico struct {
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	cache     *cache.Cache[product.Result]
	defaults  product.Defaults
	observer  ExtractionObserver
	config    Config
}

// New creates a LinkMagico instance.
func New(opts ...Option) (*LinkMagico, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	rules := extractor.DefaultRules()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}
	ext, err := extractor.New(extractor.Config{Rules: rules, Defaults: cfg.Defaults})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	rc := cfg.Cache
	if rc == nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = DefaultConfig().CacheTTL
		}
		rc = cache.New[product.Result](ttl, cache.WithClock(cfg.Now))
	}

	f := cfg.Fetcher
	if f == nil {
		mode := cfg.FetchMode
		if cfg.RenderJS && (mode == fetcher.ModeStatic || mode == "") {
			mode = fetcher.ModeAuto
		}
		f, err = fetcher.New(mode, fetcher.Config{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: cfg.MaxBodySize,
			ChromePath:  cfg.ChromePath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
	}

	logger.Debug("linkmagico created",
		"fetcher", f.Type(),
		"timeout", cfg.Timeout,
		"cache_ttl", rc.TTL(),
		"failure_policy", cfg.FailurePolicy)

	return &LinkMagico{
		fetcher:   f,
		extractor: ext,
		cache:     rc,
		defaults:  ext.Defaults(),
		observer:  NewMultiObserver(cfg.Observers...),
		config:    cfg,
	}, nil
}

// Extract returns the product description for rawURL, serving it from the
// cache when possible. It never returns a partially filled result: on
// failure every field holds its fallback literal and Error is set.
func (lm *LinkMagico) Extract(ctx context.Context, rawURL string) product.Result {
	start := lm.config.Now()
	key := cacheKey(rawURL)

	if cached, ok := lm.cache.Get(key); ok {
		logger.Debug("cache hit", "url", key)
		lm.observe(ctx, ExtractionEvent{URL: key, Outcome: OutcomeHit, StartedAt: start})
		return cached.Clone()
	}

	result, fetchDuration, err := lm.extract(ctx, key)
	event := ExtractionEvent{
		URL:           key,
		Outcome:       OutcomeSuccess,
		StartedAt:     start,
		Duration:      lm.config.Now().Sub(start),
		FetchDuration: fetchDuration,
	}

	if err != nil {
		event.Outcome = OutcomeFailure
		event.Err = err
		event.ErrorKind = result.Error.Kind
		logger.Warn("extraction failed", "url", key, "kind", result.Error.Kind, "error", err)
		if lm.config.FailurePolicy == CacheFailures {
			lm.cache.Put(key, result.Clone())
		}
	} else {
		logger.Info("extraction complete", "url", key, "title", result.Title, "duration", event.Duration)
		lm.cache.Put(key, result.Clone())
	}

	lm.observe(ctx, event)
	return result
}

// extract runs the miss path. The returned result is always well formed;
// err reports why it holds defaults.
func (lm *LinkMagico) extract(ctx context.Context, target string) (product.Result, time.Duration, error) {
	if err := validateURL(target); err != nil {
		return lm.fail(target, product.ErrorKindFetch, err), 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, lm.config.Timeout)
	defer cancel()

	fetchStart := lm.config.Now()
	content, err := lm.fetcher.Fetch(ctx, target, fetcher.Options{
		UserAgent: lm.config.UserAgent,
		Timeout:   lm.config.Timeout,
		RenderJS:  lm.config.RenderJS,
	})
	fetchDuration := lm.config.Now().Sub(fetchStart)
	if err != nil {
		err = classifyFetchError(ctx, err)
		return lm.fail(target, errorKind(err), err), fetchDuration, err
	}

	fields, err := lm.extractor.ExtractHTML(content.HTML)
	if err != nil {
		return lm.fail(target, product.ErrorKindParse, err), fetchDuration, err
	}

	result := product.Result{
		Fields:      fields,
		SourceURL:   target,
		FinalURL:    target,
		ExtractedAt: lm.config.Now(),
	}
	if content.FinalURL != "" {
		result.FinalURL = content.FinalURL
	}

	if err := result.Validate(); err != nil {
		logger.Error("extracted result violates invariants", "url", target, "error", err)
		return lm.fail(target, product.ErrorKindParse, err), fetchDuration, err
	}
	return result, fetchDuration, nil
}

func (lm *LinkMagico) fail(target string, kind product.ErrorKind, err error) product.Result {
	return lm.defaults.Failure(target, kind, err, lm.config.Now())
}

func (lm *LinkMagico) observe(ctx context.Context, event ExtractionEvent) {
	if lm.observer != nil {
		lm.observer.OnExtraction(ctx, event)
	}
}

// LookupCached returns the cached result for rawURL without fetching.
func (lm *LinkMagico) LookupCached(rawURL string) (product.Result, bool) {
	r, ok := lm.cache.Get(cacheKey(rawURL))
	if !ok {
		return product.Result{}, false
	}
	return r.Clone(), true
}

// CachedCount returns the number of cached entries, including expired
// entries not yet swept.
func (lm *LinkMagico) CachedCount() int {
	return lm.cache.Len()
}

// RunCacheSweeper removes expired cache entries every interval until ctx is
// cancelled. onPurge, if non-nil, receives the size of each non-empty sweep.
func (lm *LinkMagico) RunCacheSweeper(ctx context.Context, interval time.Duration, onPurge func(int)) {
	lm.cache.Run(ctx, interval, func(n int) {
		logger.Debug("expired cache entries removed", "count", n)
		if onPurge != nil {
			onPurge(n)
		}
	})
}

// ExtractMany extracts multiple URLs concurrently. Results arrive in
// completion order and the channel is closed when all are done.
func (lm *LinkMagico) ExtractMany(ctx context.Context, urls []string, concurrency int) <-chan product.Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make(chan product.Result, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- lm.Extract(ctx, u)
		}(u)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// FetcherType returns the active fetcher's type.
func (lm *LinkMagico) FetcherType() string {
	return lm.fetcher.Type()
}

// Close releases the fetcher.
func (lm *LinkMagico) Close() error {
	if lm.fetcher != nil {
		return lm.fetcher.Close()
	}
	return nil
}

func cacheKey(rawURL string) string {
	return strings.TrimSpace(rawURL)
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// classifyFetchError maps a bare context deadline from a fetcher that does
// not classify its own errors onto fetcher.ErrTimeout.
func classifyFetchError(ctx context.Context, err error) error {
	if errors.Is(err, fetcher.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", fetcher.ErrTimeout, err)
	}
	return err
}

func errorKind(err error) product.ErrorKind {
	if errors.Is(err, fetcher.ErrNotHTML) {
		return product.ErrorKindParse
	}
	return product.ErrorKindFetch
}
