// Package server exposes product extraction and the shopper chat over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/internal/metrics"
	"github.com/jmylchreest/linkmagico/pkg/chat"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

// Extractor is the part of the orchestrator the API depends on.
type Extractor interface {
	Extract(ctx context.Context, url string) product.Result
	LookupCached(url string) (product.Result, bool)
	CachedCount() int
	FetcherType() string
}

// Config configures the HTTP server.
type Config struct {
	Addr            string
	StaticDir       string // empty disables the chat page and /static
	BodyLimit       int64  // bytes; 0 disables
	RateLimit       int    // requests per RateWindow per client IP; 0 disables
	RateWindow      time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	TrustedProxies  []string // proxies whose X-Forwarded-For is honoured; nil trusts none
	Debug           bool
}

// DefaultConfig returns the settings of the original service: port 3000,
// 10 MB bodies, 100 requests per 15 minutes.
func DefaultConfig() Config {
	return Config{
		Addr:            ":3000",
		StaticDir:       "web",
		BodyLimit:       10_000_000,
		RateLimit:       100,
		RateWindow:      15 * time.Minute,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"*"},
	}
}

// Server is the HTTP API with lifecycle management.
type Server struct {
	router    *gin.Engine
	server    *http.Server
	config    Config
	extractor Extractor
	responder chat.Responder
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	limiter   *IPRateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics from
// gatherer.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// New creates a server answering with ext and responder.
func New(cfg Config, ext Extractor, responder chat.Responder, opts ...Option) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if responder == nil {
		responder = chat.KeywordResponder{}
	}

	s := &Server{
		router:    gin.New(),
		config:    cfg,
		extractor: ext,
		responder: responder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", "proxies", cfg.TrustedProxies, "error", err)
		_ = s.router.SetTrustedProxies(nil)
	}
	if cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		s.limiter = NewIPRateLimiter(cfg.RateLimit, cfg.RateWindow)
	}

	s.router.Use(RecoveryMiddleware())
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware())
	if s.metrics != nil {
		s.router.Use(MetricsMiddleware(s.metrics))
	}
	s.router.Use(SecurityHeadersMiddleware())
	s.router.Use(CORSMiddleware(cfg.CORSOrigins))

	s.routes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	if s.limiter != nil {
		api.Use(RateLimitMiddleware(s.limiter, s.metrics))
	}
	if s.config.BodyLimit > 0 {
		api.Use(BodyLimitMiddleware(s.config.BodyLimit))
	}
	api.POST("/extract", s.handleExtract)
	api.POST("/chat", s.handleChat)
	api.POST("/v6/chat", s.handleChat) // path used by older embedded widgets
	api.GET("/health", s.handleHealth)

	if s.config.StaticDir != "" {
		index := filepath.Join(s.config.StaticDir, "index.html")
		page := func(c *gin.Context) { c.File(index) }
		s.router.GET("/", page)
		s.router.GET("/chat", page)
		s.router.Static("/static", s.config.StaticDir)
	}

	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rota não encontrada"})
	})
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	logger.Info("starting HTTP server",
		"address", s.server.Addr,
		"static_dir", s.config.StaticDir,
		"rate_limit", s.config.RateLimit,
		"rate_window", s.config.RateWindow)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts serving in a goroutine. The returned channel receives
// the server error, if any, and is closed when serving stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server", "timeout", s.config.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully. The rate
// limiter's idle sweeper runs for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.Run(ctx, s.config.RateWindow)
	}

	errCh := s.StartAsync()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	// ctx is already done; shut down on a fresh one.
	return s.Shutdown(context.WithoutCancel(ctx))
}
