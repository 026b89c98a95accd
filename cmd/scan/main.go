// Package main runs one batch scan: fetch configured targets, normalize,
// diff against the last snapshot, score against the baseline, dispatch
// alerts and persist the run.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dealradar/internal/alert"
	"dealradar/internal/config"
	"dealradar/internal/fetch"
	"dealradar/internal/observability"
	"dealradar/internal/report"
	"dealradar/internal/runner"
	"dealradar/internal/storage"
	chstore "dealradar/internal/storage/clickhouse"
	"dealradar/internal/storage/fsjson"
	"dealradar/internal/storage/memory"
	"dealradar/internal/storage/migrations"
	"dealradar/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration (required)")
	outputDir := flag.String("output", "", "Override the snapshot directory from the configuration")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores (state lost at exit)")
	dryRun := flag.Bool("dry-run", false, "Run the pipeline without dispatching or persisting")
	metricsAddr := flag.String("metrics-addr", "", "Expose /metrics on this address for the run's duration")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	secrets := config.LoadSecrets()
	if *outputDir != "" {
		if err := cfg.OverrideSnapshotDir(*outputDir); err != nil {
			logger.Fatal().Err(err).Msg("--output not applicable")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("cancelling run")
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("metrics listener failed")
			}
		}()
		defer srv.Close()
	}

	snapshots, cleanup, err := buildSnapshotStore(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("snapshot store init failed")
	}
	defer cleanup()

	observations, obsCleanup := buildObservationStore(ctx, cfg, *useMemory, logger)
	defer obsCleanup()

	fetcher, err := buildFetcher(cfg, secrets, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("fetcher init failed")
	}

	dispatcher, err := buildDispatcher(secrets, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("dispatcher init failed")
	}

	r := runner.New(runner.Options{
		Targets:          cfg.DomainTargets(),
		Fetcher:          fetcher,
		SnapshotStore:    snapshots,
		ObservationStore: observations,
		Dispatcher:       dispatcher,
		Realert:          alert.RealertPolicy(cfg.Alerts.Realert),
		Concurrency:      cfg.Fetch.Concurrency,
		DryRun:           *dryRun,
		Metrics:          metrics,
		Logger:           logger,
	})

	summary, err := r.Run(ctx)
	if err != nil {
		// Persist failures and cancellation are fatal; partial fetch
		// failures are not and land in the summary instead.
		logger.Fatal().Err(err).Msg("run failed")
	}

	md := report.RenderMarkdown(summary)
	if dir := cfg.Storage.SnapshotDir; dir != "" && !*useMemory && !*dryRun {
		path := filepath.Join(dir, fmt.Sprintf("run_%s.md", summary.RunID))
		if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
			logger.Warn().Err(err).Msg("write run summary")
		} else {
			logger.Info().Str("path", path).Msg("run summary written")
		}
	}
	fmt.Print(md)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func buildSnapshotStore(ctx context.Context, cfg *config.Config, useMemory bool) (storage.SnapshotStore, func(), error) {
	if useMemory {
		return memory.NewSnapshotStore(), func() {}, nil
	}
	if cfg.Storage.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewSnapshotStore(pool), pool.Close, nil
	}
	store, err := fsjson.NewSnapshotStore(cfg.Storage.SnapshotDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

// buildObservationStore wires the optional analytics sink. Failures here
// only disable the sink; the run proceeds without it.
func buildObservationStore(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) (storage.ObservationStore, func()) {
	if useMemory || cfg.Storage.ClickhouseDSN == "" {
		return nil, func() {}
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		logger.Warn().Err(err).Msg("clickhouse unavailable, observation sink disabled")
		return nil, func() {}
	}
	return chstore.NewObservationStore(conn), func() { conn.Close() }
}

func buildFetcher(cfg *config.Config, secrets config.Secrets, logger zerolog.Logger) (fetch.Fetcher, error) {
	if cfg.Fetch.Mode == "file" {
		return fetch.NewFileSource(cfg.Fetch.CaptureDir), nil
	}
	return fetch.NewHTTPJSONSource(fetch.HTTPJSONOptions{
		BaseURL:     cfg.Fetch.BaseURL,
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.Fetch.Timeout,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		RetryDelay:  cfg.Fetch.RetryDelay,
		ProxyURL:    secrets.ProxyURL,
		Logger:      logger,
	})
}

func buildDispatcher(secrets config.Secrets, logger zerolog.Logger) (alert.Dispatcher, error) {
	if secrets.WebhookURL == "" {
		logger.Info().Msg("no webhook configured, alerts logged only")
		return alert.NopDispatcher{}, nil
	}
	return alert.NewDiscordDispatcher(secrets.WebhookURL)
}
