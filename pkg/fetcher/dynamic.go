package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/linkmagico/internal/logger"
)

// DynamicFetcher renders pages in headless Chrome via chromedp.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a dynamic fetcher. No browser runs until a fetch
// starts one.
func NewDynamic(cfg Config) (*DynamicFetcher, error) {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)

	chromePath := coalesce(cfg.ChromePath, FindChromePath())
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	} else {
		logger.Warn("no Chrome binary found, dynamic fetches will fail")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "chrome", chromePath, "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch launches a fresh browser process from the allocator and loads the
// page in it. The browser is shut down on every return path, including
// timeouts.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FinalURL:  targetURL,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	timeout := timeoutOr(opts.Timeout, f.config.Timeout)
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	// The browser context derives from the allocator, not ctx, so caller
	// cancellation has to be forwarded.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	docs := &documentResponses{}
	chromedp.ListenTarget(timeoutCtx, docs.listen)

	var html, title, location string
	actions := []chromedp.Action{network.Enable()}

	if len(opts.Headers) > 0 {
		headers := network.Headers{}
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if opts.UserAgent != "" && opts.UserAgent != f.config.UserAgent {
		actions = append(actions, emulation.SetUserAgentOverride(opts.UserAgent))
	}

	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)

	logger.Debug("dynamic fetch starting", "url", targetURL, "timeout", timeout)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	if location != "" {
		result.FinalURL = location
	}
	result.HTML = html
	result.Title = title
	result.StatusCode, result.ContentType = docs.lookup(result.FinalURL, targetURL)

	if result.StatusCode == 0 {
		// Served without a network response (e.g. from the browser cache).
		result.StatusCode = 200
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

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"final_url", result.FinalURL,
		"status", result.StatusCode,
		"title", title,
		"html_size", len(html))

	return result, nil
}

// Close shuts down the browser.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}

// documentResponses records the status and MIME type of every document
// response seen by the page, keyed by URL. Listeners run on chromedp's event
// goroutine.
type documentResponses struct {
	mu      sync.Mutex
	entries map[string]documentResponse
}

type documentResponse struct {
	status   int
	mimeType string
}

func (d *documentResponses) listen(ev any) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entries == nil {
		d.entries = make(map[string]documentResponse)
	}
	d.entries[e.Response.URL] = documentResponse{
		status:   int(e.Response.Status),
		mimeType: e.Response.MimeType,
	}
}

// lookup returns the response recorded for the first URL that has one.
func (d *documentResponses) lookup(urls ...string) (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range urls {
		if r, ok := d.entries[u]; ok {
			return r.status, r.mimeType
		}
	}
	return 0, ""
}
