package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/linkmagico/internal/config"
	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/internal/metrics"
	"github.com/jmylchreest/linkmagico/internal/server"
	"github.com/jmylchreest/linkmagico/internal/version"
	"github.com/jmylchreest/linkmagico/pkg/linkmagico"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and chat page",
	Long: `Serve the extraction and chat API.

Endpoints:
  POST /api/extract   {"url": "..."}
  POST /api/chat      {"message": "...", "url": "..."}
  GET  /api/health
  GET  /metrics
  GET  /  and  /chat  (chat page from --static-dir)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", ":3000", "listen address")
	flags.String("static-dir", "web", "directory with index.html and static assets (empty disables)")
	flags.Int("rate-limit", 100, "requests per rate window per client IP (0 disables)")

	_ = viper.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("server.static_dir", flags.Lookup("static-dir"))
	_ = viper.BindPFlag("server.rate_limit", flags.Lookup("rate-limit"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts, err := cfg.Options()
	if err != nil {
		logger.Error("invalid extraction settings", "error", err)
		return err
	}

	var lm *linkmagico.LinkMagico
	opts = append(opts,
		linkmagico.WithObserver(m),
		linkmagico.WithObserver(linkmagico.ObserverFunc(func(context.Context, linkmagico.ExtractionEvent) {
			m.SetCacheEntries(lm.CachedCount())
		})),
	)
	lm, err = linkmagico.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = lm.Close() }()

	responder, err := cfg.Responder()
	if err != nil {
		logger.Error("failed to create chat responder", "error", err)
		return err
	}

	go lm.RunCacheSweeper(ctx, cfg.Cache.SweepInterval, func(n int) {
		m.OnPurge(n)
		m.SetCacheEntries(lm.CachedCount())
	})

	var serverOpts []server.Option
	if cfg.Server.Metrics {
		serverOpts = append(serverOpts, server.WithMetrics(m, reg))
	}
	srv := server.New(serverConfig(cfg), lm, responder, serverOpts...)

	logger.Info("linkmagico starting",
		"version", version.String(),
		"fetcher", lm.FetcherType(),
		"responder", responder.Name(),
		"cache_ttl", cfg.Cache.TTL)

	return srv.Run(ctx)
}

func serverConfig(cfg *config.Config) server.Config {
	bodyLimit, _ := cfg.Server.BodyLimitBytes() // validated by config.Load
	return server.Config{
		Addr:            cfg.Server.Addr,
		StaticDir:       cfg.Server.StaticDir,
		BodyLimit:       bodyLimit,
		RateLimit:       cfg.Server.RateLimit,
		RateWindow:      cfg.Server.RateWindow,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		TrustedProxies:  cfg.Server.TrustedProxies,
		Debug:           viper.GetBool("debug"),
	}
}
