// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Output  OutputConfig  `mapstructure:"output"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig describes the remote statistics site.
type SourceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CrawlerConfig governs pagination, politeness and rate-limit handling.
type CrawlerConfig struct {
	SeasonsFirst        int           `mapstructure:"seasons_first"`
	SeasonsLast         int           `mapstructure:"seasons_last"`
	MaxPages            int           `mapstructure:"max_pages"`
	StrictPageLimit     bool          `mapstructure:"strict_page_limit"`
	RespectRobots       bool          `mapstructure:"respect_robots"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	DefaultCooldown     time.Duration `mapstructure:"default_cooldown"`
	MaxRateLimitRetries int           `mapstructure:"max_rate_limit_retries"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	Burst               int           `mapstructure:"burst"`
	ContinueOnError     bool          `mapstructure:"continue_on_error"`
}

// OutputConfig names the local CSV artifacts.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	ManagersFile string `mapstructure:"managers_file"`
	StatsFile    string `mapstructure:"stats_file"`
}

// DBConfig controls access to the relational database. An empty DSN disables it.
type DBConfig struct {
	DSN           string `mapstructure:"dsn"`
	RecordsTable  string `mapstructure:"records_table"`
	ManagersTable string `mapstructure:"managers_table"`
	MaxConns      int32  `mapstructure:"max_conns"`
}

// StorageConfig selects where finished artifacts are uploaded.
// GCSBucket takes precedence over LocalDir; both empty disables uploads.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MGRCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", crawler.DefaultBaseURL)
	v.SetDefault("source.user_agent", "Mozilla/5.0")
	v.SetDefault("crawler.seasons_first", 2000)
	v.SetDefault("crawler.seasons_last", 2021)
	v.SetDefault("crawler.max_pages", crawler.DefaultMaxPages)
	v.SetDefault("crawler.strict_page_limit", false)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.request_timeout", "30s")
	v.SetDefault("crawler.default_cooldown", "15s")
	v.SetDefault("crawler.max_rate_limit_retries", 0)
	v.SetDefault("crawler.requests_per_second", 0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("crawler.continue_on_error", true)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.managers_file", "managers.csv")
	v.SetDefault("output.stats_file", "manager_stats.csv")
	v.SetDefault("db.records_table", "matchup_records")
	v.SetDefault("db.managers_table", "season_managers")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.prefix", "manager-records")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must be set")
	}
	if err := c.Seasons().Validate(); err != nil {
		return fmt.Errorf("crawler.seasons_first/seasons_last: %w", err)
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.DefaultCooldown <= 0 {
		return fmt.Errorf("crawler.default_cooldown must be > 0")
	}
	if c.Crawler.MaxRateLimitRetries < 0 {
		return fmt.Errorf("crawler.max_rate_limit_retries must be >= 0")
	}
	if c.Crawler.RequestsPerSecond > 0 && c.Crawler.Burst <= 0 {
		return fmt.Errorf("crawler.burst must be > 0 when requests_per_second is set")
	}
	if c.Output.ManagersFile == "" || c.Output.StatsFile == "" {
		return fmt.Errorf("output.managers_file and output.stats_file must be set")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Seasons returns the configured default season range.
func (c Config) Seasons() crawler.SeasonRange {
	return crawler.SeasonRange{First: c.Crawler.SeasonsFirst, Last: c.Crawler.SeasonsLast}
}
