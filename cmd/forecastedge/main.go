package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/forecastedge/config"
	"github.com/alejandrodnm/forecastedge/internal/adapters/metrics"
	"github.com/alejandrodnm/forecastedge/internal/adapters/notify"
	"github.com/alejandrodnm/forecastedge/internal/adapters/openmeteo"
	"github.com/alejandrodnm/forecastedge/internal/adapters/polymarket"
	"github.com/alejandrodnm/forecastedge/internal/adapters/storage"
	"github.com/alejandrodnm/forecastedge/internal/application/engine"
	"github.com/alejandrodnm/forecastedge/internal/application/scanner"
	"github.com/alejandrodnm/forecastedge/internal/ensemble"
	"github.com/alejandrodnm/forecastedge/internal/ladder"
	"github.com/alejandrodnm/forecastedge/internal/ports"
	"github.com/alejandrodnm/forecastedge/internal/probability"
	"github.com/alejandrodnm/forecastedge/internal/risk"
	sig "github.com/alejandrodnm/forecastedge/internal/signal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle (scan + lifecycle) and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full signal tables (default: compact 1-line)")
	stats := flag.Bool("stats", false, "print ledger stats and exit")
	history := flag.Duration("history", 0, "print signals recorded in the last duration (e.g. 24h) and exit")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on addr (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
	setupLogger(cfg.Log)

	slog.Info("forecastedge starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"events", len(cfg.Events),
		"paper_trade", cfg.Scanner.PaperTrade,
		"once", *once,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *stats {
		runStats(ctx, store, notifier)
		return
	}
	if *history > 0 {
		runHistory(ctx, store, notifier, *history)
		return
	}

	var rec ports.Metrics = metrics.Nop{}
	if cfg.Metrics.Enabled {
		rec = metrics.New(nil)
		srv := serveMetrics(cfg.Metrics.Addr)
		defer shutdown(srv)
	}

	markets := polymarket.NewClient(cfg.API.GammaBase)
	forecasts := openmeteo.NewClient(cfg.OpenMeteoConfig())
	guard := risk.New(cfg.RiskConfig())
	specs := cfg.EventSpecs()

	analyzer := scanner.NewAnalyzer(
		ensemble.New(cfg.EnsembleConfig()),
		probability.New(cfg.ProbabilityConfig()),
		sig.New(cfg.SignalConfig()),
		ladder.New(cfg.LadderConfig()),
	)
	s := scanner.New(
		scanner.Config{
			Events:           specs,
			AnalysisWorkers:  cfg.Scanner.AnalysisWorkers,
			StartingBankroll: cfg.Risk.StartingBankroll,
			PaperTrade:       cfg.Scanner.PaperTrade,
		},
		markets, forecasts, store, notifier, rec, analyzer, guard, cfg.SizingConfig(),
	)
	e := engine.New(
		engine.Config{
			Stops:            cfg.StopConfig(),
			StartingBankroll: cfg.Risk.StartingBankroll,
			Events:           specs,
		},
		markets, store, notifier, rec, guard,
	)

	if *once {
		runCycle(ctx, s, e)
		runStats(ctx, store, notifier)
		return
	}
	runLoop(ctx, s, e, store, notifier, cfg.ScanInterval())
	slog.Info("forecastedge stopped cleanly")
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
