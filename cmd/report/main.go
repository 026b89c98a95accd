// Package main renders reports from persisted run data: per-day price
// trends from the observation sink and the alert history per target.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"dealradar/internal/config"
	"dealradar/internal/domain"
	"dealradar/internal/report"
	"dealradar/internal/storage"
	chstore "dealradar/internal/storage/clickhouse"
	"dealradar/internal/storage/fsjson"
	"dealradar/internal/storage/migrations"
	"dealradar/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration (required)")
	queryKey := flag.String("query", "", "Limit to one query key (default: all targets)")
	outputDir := flag.String("output", "", "Directory for report files (default: stdout)")
	csvFormat := flag.Bool("csv", false, "Render trends as CSV instead of Markdown")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	keys := targetKeys(cfg, *queryKey)
	if len(keys) == 0 {
		logger.Fatal().Str("query", *queryKey).Msg("query key not in configuration")
	}

	snapshots, cleanup, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("snapshot store init failed")
	}
	defer cleanup()

	for _, key := range keys {
		if err := renderAlertHistory(ctx, snapshots, key, *outputDir); err != nil {
			logger.Fatal().Err(err).Str("query_key", key).Msg("alert history report failed")
		}
	}

	if cfg.Storage.ClickhouseDSN == "" {
		logger.Info().Msg("no clickhouse_dsn configured, skipping trend report")
		return
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("clickhouse init failed")
	}
	defer conn.Close()

	obs := chstore.NewObservationStore(conn)
	for _, key := range keys {
		if err := renderTrend(ctx, obs, key, *outputDir, *csvFormat); err != nil {
			logger.Fatal().Err(err).Str("query_key", key).Msg("trend report failed")
		}
	}
}

func targetKeys(cfg *config.Config, only string) []string {
	var keys []string
	for _, t := range cfg.Targets {
		if only == "" || t.QueryKey == only {
			keys = append(keys, t.QueryKey)
		}
	}
	return keys
}

func buildSnapshotStore(ctx context.Context, cfg *config.Config) (storage.SnapshotStore, func(), error) {
	if cfg.Storage.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
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

// renderAlertHistory writes the latest alert record per listing id, oldest
// alert first.
func renderAlertHistory(ctx context.Context, snapshots storage.SnapshotStore, key, outputDir string) error {
	alerted, err := snapshots.AlertedIDs(ctx, key)
	if err != nil {
		return err
	}

	records := make([]domain.AlertRecord, 0, len(alerted))
	for _, rec := range alerted {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].AlertedAt != records[j].AlertedAt {
			return records[i].AlertedAt < records[j].AlertedAt
		}
		return records[i].ListingID < records[j].ListingID
	})

	return emit(outputDir, fmt.Sprintf("alerts_%s.csv", key), report.RenderAlertsCSV(records))
}

func renderTrend(ctx context.Context, obs storage.ObservationStore, key, outputDir string, csvFormat bool) error {
	points, err := obs.TrendByDay(ctx, key)
	if err != nil {
		return err
	}

	if csvFormat {
		return emit(outputDir, fmt.Sprintf("trend_%s.csv", key), report.RenderTrendCSV(points))
	}
	return emit(outputDir, fmt.Sprintf("trend_%s.md", key), report.RenderTrendMarkdown(key, points))
}

func emit(outputDir, name, content string) error {
	if outputDir == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, name), []byte(content), 0o644)
}
