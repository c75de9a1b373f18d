package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"DealRadar/internal/domain"
)

const (
	configPathEnv  = "DEALRADAR_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	apiAddrEnv     = "DEALRADAR_API_ADDR"
	logLevelEnv    = "DEALRADAR_LOG_LEVEL"
)

// Config holds every option the engine recognizes. Unknown YAML keys are a
// startup error.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	API          APIConfig          `yaml:"api"`
	Storage      StorageConfig      `yaml:"storage"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	Dedup        DedupConfig        `yaml:"dedup"`
	PriceHistory PriceHistoryConfig `yaml:"priceHistory"`
	Sources      []SourceConfig     `yaml:"sources"`
	Tables       TablesConfig       `yaml:"tables"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// APIConfig describes the read-only query surface listener.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects the record-store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory | pebble | postgres
	Path    string `yaml:"path"`    // pebble directory
	DSN     string `yaml:"dsn"`     // postgres
}

// SchedulerConfig drives the tick loop.
type SchedulerConfig struct {
	TickIntervalSeconds int `yaml:"tickIntervalSeconds"`
}

// TickInterval resolves the configured tick cadence.
func (s SchedulerConfig) TickInterval() time.Duration {
	if s.TickIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.TickIntervalSeconds) * time.Second
}

// ScoringConfig carries the weight vector and verdict thresholds.
type ScoringConfig struct {
	Weights           WeightsConfig           `yaml:"weights"`
	VerdictThresholds VerdictThresholdsConfig `yaml:"verdictThresholds"`
}

// WeightsConfig must sum to 100.
type WeightsConfig struct {
	PriceHistory int `yaml:"priceHistory"`
	Discount     int `yaml:"discount"`
	Quality      int `yaml:"quality"`
	Freshness    int `yaml:"freshness"`
	Trust        int `yaml:"trust"`
	Engagement   int `yaml:"engagement"`
}

// Sum returns the combined weight of all six components.
func (w WeightsConfig) Sum() int {
	return w.PriceHistory + w.Discount + w.Quality + w.Freshness + w.Trust + w.Engagement
}

// VerdictThresholdsConfig maps scores onto verdict buckets.
type VerdictThresholdsConfig struct {
	Incredible int `yaml:"incredible"`
	Great      int `yaml:"great"`
	Good       int `yaml:"good"`
	Fair       int `yaml:"fair"`
}

// DedupConfig tunes the fuzzy title pass.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
}

// PriceHistoryConfig tunes stats derivation and archival.
type PriceHistoryConfig struct {
	AllTimeLowTolerance float64 `yaml:"allTimeLowTolerance"`
	ArchiveDays         int     `yaml:"archiveDays"`
}

// SourceConfig describes one upstream adapter instance.
type SourceConfig struct {
	Kind               string            `yaml:"kind"` // affiliate | rss | scraper | submission
	Name               string            `yaml:"name"`
	Enabled            bool              `yaml:"enabled"`
	IntervalMinutes    int               `yaml:"intervalMinutes"`
	RateLimitPerMinute int               `yaml:"rateLimitPerMinute"`
	URL                string            `yaml:"url"`
	Category           string            `yaml:"category"`
	Auth               AuthConfig        `yaml:"auth"`
	Selectors          map[string]string `yaml:"selectors"`
}

// AuthConfig covers the affiliate-network authentication variants.
type AuthConfig struct {
	APIKey    string `yaml:"apiKey"`
	PartnerID string `yaml:"partnerId"`
	Secret    string `yaml:"secret"` // HMAC-signed networks
}

// MinInterval converts the per-minute rate limit into a request floor.
func (s SourceConfig) MinInterval() time.Duration {
	if s.RateLimitPerMinute <= 0 {
		return time.Second
	}
	return time.Minute / time.Duration(s.RateLimitPerMinute)
}

// PollPeriod is the effective scheduler period for this source.
func (s SourceConfig) PollPeriod() time.Duration {
	if s.IntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// TablesConfig bundles the curated lookup tables loaded at startup.
type TablesConfig struct {
	RetailerTrust      map[string]int           `yaml:"retailerTrust"`
	CategoryThresholds map[string]ThresholdPair `yaml:"categoryThresholds"`
	BrandAliases       map[string][]string      `yaml:"brandAliases"`
	Marketplaces       map[string]string        `yaml:"marketplaces"`
	Categories         map[string]string        `yaml:"categories"`
	SaleEvents         []domain.SaleEvent       `yaml:"saleEvents"`
}

// ThresholdPair holds category-specific discount cutoffs.
type ThresholdPair struct {
	Great int `yaml:"great"`
	Good  int `yaml:"good"`
}

// Load reads YAML configuration from DEALRADAR_CONFIG (when set), lays it
// over compiled defaults, applies environment overrides and validates the
// result. Unknown keys fail loudly per the configuration contract.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		fileCfg, err := Parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML strictly: any key not present in the Config schema is
// an error.
func Parse(raw []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the invariants of the configuration surface.
func (c Config) Validate() error {
	if sum := c.Scoring.Weights.Sum(); sum != 100 {
		return fmt.Errorf("config: scoring weights must sum to 100, got %d", sum)
	}

	t := c.Scoring.VerdictThresholds
	if !(t.Incredible > t.Great && t.Great > t.Good && t.Good > t.Fair && t.Fair > 0) {
		return fmt.Errorf("config: verdict thresholds must be strictly descending, got %d/%d/%d/%d",
			t.Incredible, t.Great, t.Good, t.Fair)
	}

	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("config: dedup.similarityThreshold must be in (0,1], got %v", c.Dedup.SimilarityThreshold)
	}

	if c.PriceHistory.AllTimeLowTolerance < 1 {
		return fmt.Errorf("config: priceHistory.allTimeLowTolerance must be >= 1, got %v", c.PriceHistory.AllTimeLowTolerance)
	}

	switch c.Storage.Backend {
	case "memory", "pebble", "postgres":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	seen := map[string]bool{}
	for _, src := range c.Sources {
		switch src.Kind {
		case "affiliate", "rss", "scraper", "submission":
		default:
			return fmt.Errorf("config: source %s has unknown kind %q", src.Name, src.Kind)
		}
		if src.Name == "" {
			return fmt.Errorf("config: source of kind %s is missing a name", src.Kind)
		}
		if seen[src.Name] {
			return fmt.Errorf("config: duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(apiAddrEnv); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func merge(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.API.Addr != "" {
		base.API = override.API
	}
	if override.Storage.Backend != "" {
		base.Storage.Backend = override.Storage.Backend
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Scheduler.TickIntervalSeconds != 0 {
		base.Scheduler = override.Scheduler
	}
	if override.Scoring.Weights.Sum() != 0 {
		base.Scoring.Weights = override.Scoring.Weights
	}
	if override.Scoring.VerdictThresholds != (VerdictThresholdsConfig{}) {
		base.Scoring.VerdictThresholds = override.Scoring.VerdictThresholds
	}
	if override.Dedup.SimilarityThreshold != 0 {
		base.Dedup = override.Dedup
	}
	if override.PriceHistory.AllTimeLowTolerance != 0 {
		base.PriceHistory.AllTimeLowTolerance = override.PriceHistory.AllTimeLowTolerance
	}
	if override.PriceHistory.ArchiveDays != 0 {
		base.PriceHistory.ArchiveDays = override.PriceHistory.ArchiveDays
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Tables.RetailerTrust) > 0 {
		base.Tables.RetailerTrust = override.Tables.RetailerTrust
	}
	if len(override.Tables.CategoryThresholds) > 0 {
		base.Tables.CategoryThresholds = override.Tables.CategoryThresholds
	}
	if len(override.Tables.BrandAliases) > 0 {
		base.Tables.BrandAliases = override.Tables.BrandAliases
	}
	if len(override.Tables.Marketplaces) > 0 {
		base.Tables.Marketplaces = override.Tables.Marketplaces
	}
	if len(override.Tables.Categories) > 0 {
		base.Tables.Categories = override.Tables.Categories
	}
	if len(override.Tables.SaleEvents) > 0 {
		base.Tables.SaleEvents = override.Tables.SaleEvents
	}
	return base
}
