package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/linkmagico/internal/logger"
)

// StaticFetcher uses Colly for plain HTTP fetching without JavaScript.
// It implements the Fetcher interface.
type StaticFetcher struct {
	config Config
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *StaticFetcher {
	return &StaticFetcher{config: cfg.withDefaults()}
}

// Fetch retrieves page content using Colly. Non-2xx responses return a
// *StatusError, non-HTML responses ErrNotHTML and challenge pages ErrAntiBot.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FinalURL:  targetURL,
		FetchedAt: time.Now(),
	}

	timeout := timeoutOr(opts.Timeout, f.config.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userAgent := coalesce(opts.UserAgent, f.config.UserAgent)
	collectorOpts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.UserAgent(userAgent),
		colly.ParseHTTPErrorResponse(),
		colly.DetectCharset(),
	}
	if f.config.MaxBodySize > 0 {
		collectorOpts = append(collectorOpts, colly.MaxBodySize(f.config.MaxBodySize))
	}

	// A new collector per request keeps colly's visited-URL tracking from
	// refusing repeat fetches.
	c := colly.NewCollector(collectorOpts...)
	c.SetRequestTimeout(timeout)

	logger.Debug("static fetch starting", "url", targetURL, "timeout", timeout, "user_agent", userAgent)

	if len(opts.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			result.FinalURL = r.Request.URL.String()
		}
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		logger.Debug("static fetch failed", "url", targetURL, "error", fetchErr)
		return result, classifyError(ctx, fetchErr)
	}

	if result.StatusCode < 200 || result.StatusCode > 299 {
		return result, &StatusError{URL: result.FinalURL, Code: result.StatusCode}
	}
	if !isHTML(result.ContentType) {
		return result, fmt.Errorf("%w: %s", ErrNotHTML, result.ContentType)
	}

	if err := parseContent(&result); err != nil {
		return result, fmt.Errorf("failed to parse content: %w", err)
	}
	if challenge := detectChallengePage(result); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return result, fmt.Errorf("%w: %s", ErrAntiBot, challenge)
	}

	logger.Debug("static fetch complete",
		"url", targetURL,
		"final_url", result.FinalURL,
		"title", result.Title,
		"text_size", len(result.Text))

	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

// classifyError wraps deadline and network timeouts with ErrTimeout.
func classifyError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("fetch error: %w", err)
}
