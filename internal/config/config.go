// Package config loads and validates the YAML run configuration. Secrets
// never live in the file: the proxy connection string and the webhook URL
// come from the environment and are kept out of logs and persisted state.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"dealradar/internal/anomaly"
	"dealradar/internal/domain"
)

// Config is the full run configuration.
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
	Fetch   FetchConfig    `yaml:"fetch"`
	Alerts  AlertsConfig   `yaml:"alerts"`
	Storage StorageConfig  `yaml:"storage"`
}

// TargetConfig is one configured search query.
type TargetConfig struct {
	QueryKey           string                `yaml:"query_key"`
	SearchTerms        string                `yaml:"search_terms"`
	Platform           string                `yaml:"platform"`
	PriceFilters       domain.PriceFilters   `yaml:"price_filters"`
	MinBaselineSamples int                   `yaml:"min_baseline_samples"`
	AnomalyThreshold   float64               `yaml:"anomaly_threshold"`
	BaselineWindow     domain.BaselineWindow `yaml:"baseline_window"`
}

// FetchConfig configures the fetcher collaborators.
type FetchConfig struct {
	// Mode selects the source: "http" hits the search API, "file" replays
	// captures from CaptureDir.
	Mode        string        `yaml:"mode"`
	BaseURL     string        `yaml:"base_url"`
	CaptureDir  string        `yaml:"capture_dir"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Concurrency int           `yaml:"concurrency"`
}

// AlertsConfig configures alert selection and delivery.
type AlertsConfig struct {
	// Realert is "price_change" (default) or "never".
	Realert string `yaml:"realert"`
}

// StorageConfig selects the snapshot backend and the optional analytics sink.
// Exactly one of SnapshotDir and PostgresDSN must be set.
type StorageConfig struct {
	SnapshotDir   string `yaml:"snapshot_dir"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

var queryKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

var knownPlatforms = map[string]bool{
	string(domain.PlatformCarousell):  true,
	string(domain.PlatformEbay):       true,
	string(domain.PlatformSlickdeals): true,
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = "http"
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Alerts.Realert == "" {
		c.Alerts.Realert = "price_change"
	}
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.MinBaselineSamples <= 0 {
			t.MinBaselineSamples = anomaly.DefaultMinSamples
		}
		if t.AnomalyThreshold <= 0 {
			t.AnomalyThreshold = anomaly.DefaultThreshold
		}
		if t.BaselineWindow.Runs == 0 && t.BaselineWindow.Span == 0 {
			t.BaselineWindow.Runs = anomaly.DefaultBaselineRuns
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("targets cannot be empty")
	}

	seen := make(map[string]bool)
	for _, t := range c.Targets {
		if !queryKeyPattern.MatchString(t.QueryKey) {
			return fmt.Errorf("target query_key %q must match %s", t.QueryKey, queryKeyPattern)
		}
		// Reserved: the snapshot store writes alerts.json next to the
		// per-query snapshot files.
		if t.QueryKey == "alerts" {
			return fmt.Errorf("target query_key %q is reserved", t.QueryKey)
		}
		if seen[t.QueryKey] {
			return fmt.Errorf("duplicate target query_key %q", t.QueryKey)
		}
		seen[t.QueryKey] = true

		if t.SearchTerms == "" {
			return fmt.Errorf("target %s: search_terms is required", t.QueryKey)
		}
		if !knownPlatforms[t.Platform] {
			return fmt.Errorf("target %s: unknown platform %q", t.QueryKey, t.Platform)
		}
		if t.PriceFilters.Min != nil && t.PriceFilters.Max != nil && *t.PriceFilters.Min > *t.PriceFilters.Max {
			return fmt.Errorf("target %s: price_filters.min exceeds max", t.QueryKey)
		}
		if t.BaselineWindow.Runs < 0 || t.BaselineWindow.Span < 0 {
			return fmt.Errorf("target %s: baseline_window must not be negative", t.QueryKey)
		}
	}

	switch c.Fetch.Mode {
	case "http":
		if c.Fetch.BaseURL == "" {
			return fmt.Errorf("fetch.base_url is required in http mode")
		}
	case "file":
		if c.Fetch.CaptureDir == "" {
			return fmt.Errorf("fetch.capture_dir is required in file mode")
		}
	default:
		return fmt.Errorf("fetch.mode must be 'http' or 'file', got %q", c.Fetch.Mode)
	}

	if c.Alerts.Realert != "price_change" && c.Alerts.Realert != "never" {
		return fmt.Errorf("alerts.realert must be 'price_change' or 'never', got %q", c.Alerts.Realert)
	}

	if c.Storage.SnapshotDir == "" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage requires snapshot_dir or postgres_dsn")
	}
	if c.Storage.SnapshotDir != "" && c.Storage.PostgresDSN != "" {
		return fmt.Errorf("storage.snapshot_dir and storage.postgres_dsn are mutually exclusive")
	}

	return nil
}

// OverrideSnapshotDir redirects the filesystem snapshot store. It fails
// when postgres is configured, where a snapshot directory has no meaning.
func (c *Config) OverrideSnapshotDir(dir string) error {
	if c.Storage.PostgresDSN != "" {
		return fmt.Errorf("snapshot directory override conflicts with storage.postgres_dsn")
	}
	c.Storage.SnapshotDir = dir
	return nil
}

// DomainTargets converts the configured targets to domain values.
func (c *Config) DomainTargets() []domain.Target {
	targets := make([]domain.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		targets = append(targets, domain.Target{
			QueryKey:           t.QueryKey,
			SearchTerms:        t.SearchTerms,
			Platform:           domain.Platform(t.Platform),
			PriceFilters:       t.PriceFilters,
			MinBaselineSamples: t.MinBaselineSamples,
			AnomalyThreshold:   t.AnomalyThreshold,
			BaselineWindow:     t.BaselineWindow,
		})
	}
	return targets
}
