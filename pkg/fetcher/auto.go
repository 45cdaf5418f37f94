package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmylchreest/linkmagico/internal/logger"
)

// AutoFetcher fetches statically first and re-fetches in a browser when the
// page looks like a client-rendered shell or the plain request was blocked.
type AutoFetcher struct {
	static  Fetcher
	dynamic Fetcher
}

// NewAuto creates a fetcher that auto-detects JavaScript requirements.
func NewAuto(cfg Config) (*AutoFetcher, error) {
	dynamic, err := NewDynamic(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic fetcher: %w", err)
	}
	return &AutoFetcher{static: NewStatic(cfg), dynamic: dynamic}, nil
}

// Fetch uses the browser directly when opts.RenderJS is set.
func (f *AutoFetcher) Fetch(ctx context.Context, url string, opts Options) (Content, error) {
	if opts.RenderJS {
		return f.dynamic.Fetch(ctx, url, opts)
	}

	content, err := f.static.Fetch(ctx, url, opts)
	switch {
	case err == nil && !needsJavaScript(content):
		return content, nil
	case err != nil && !escalate(err):
		return content, err
	}

	logger.Debug("retrying with browser", "url", url, "static_error", err)
	return f.dynamic.Fetch(ctx, url, opts)
}

// escalate reports whether a static failure may succeed in a real browser.
func escalate(err error) bool {
	if errors.Is(err, ErrAntiBot) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		}
	}
	return false
}

// spaMarkers are empty mount points left by client-side frameworks.
var spaMarkers = []string{
	`<div id="root"></div>`,   // React
	`<div id="app"></div>`,    // Vue
	`<app-root></app-root>`,   // Angular
	`<div id="__next"></div>`, // Next.js
	`<div id="__nuxt"></div>`, // Nuxt
	`<div data-reactroot`,
	`ng-app`,
	`v-cloak`,
}

var (
	loadingIndicators = []string{"loading", "carregando", "please wait", "aguarde", "enable javascript", "javascript required"}
	noscriptWarnings  = []string{"javascript", "enable", "habilite", "required", "browser", "navegador"}
)

// needsJavaScript reports whether a statically fetched page appears to
// require JS rendering.
func needsJavaScript(content Content) bool {
	html := strings.ToLower(content.HTML)

	for _, marker := range spaMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}

	if len(content.Text) < 100 {
		if strings.TrimSpace(content.Text) == "" {
			return true
		}
		text := strings.ToLower(content.Text)
		for _, indicator := range loadingIndicators {
			if strings.Contains(text, indicator) {
				return true
			}
		}
	}

	if noscript, ok := between(html, "<noscript>", "</noscript>"); ok {
		for _, w := range noscriptWarnings {
			if strings.Contains(noscript, w) && len(content.Text) < 500 {
				return true
			}
		}
	}

	return false
}

func between(s, start, end string) (string, bool) {
	_, rest, ok := strings.Cut(s, start)
	if !ok {
		return "", false
	}
	inner, _, ok := strings.Cut(rest, end)
	return inner, ok
}

// Close releases all fetcher resources.
func (f *AutoFetcher) Close() error {
	return errors.Join(f.static.Close(), f.dynamic.Close())
}

// Type returns the fetcher type.
func (f *AutoFetcher) Type() string {
	return "auto"
}
