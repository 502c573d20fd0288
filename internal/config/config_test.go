package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL != "https://www.transfermarkt.co.uk" {
		t.Fatalf("unexpected base url %q", cfg.Source.BaseURL)
	}
	if got := cfg.Seasons(); got.First != 2000 || got.Last != 2021 {
		t.Fatalf("expected seasons 2000-2021, got %+v", got)
	}
	if cfg.Crawler.MaxPages != 100 {
		t.Fatalf("expected max pages 100, got %d", cfg.Crawler.MaxPages)
	}
	if cfg.Crawler.DefaultCooldown != 15*time.Second {
		t.Fatalf("expected 15s cooldown, got %v", cfg.Crawler.DefaultCooldown)
	}
	if cfg.Crawler.MaxRateLimitRetries != 0 {
		t.Fatalf("expected unbounded retries, got %d", cfg.Crawler.MaxRateLimitRetries)
	}
	if cfg.Output.ManagersFile != "managers.csv" || cfg.Output.StatsFile != "manager_stats.csv" {
		t.Fatalf("unexpected output files %+v", cfg.Output)
	}
	if !cfg.Crawler.ContinueOnError {
		t.Fatal("expected continue_on_error by default")
	}
	if cfg.DB.DSN != "" || cfg.Storage.GCSBucket != "" || cfg.PubSub.TopicName != "" {
		t.Fatalf("expected optional sinks to be disabled by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  base_url: http://localhost:9000
  user_agent: test-agent
crawler:
  seasons_first: 2010
  seasons_last: 2012
  max_pages: 20
  strict_page_limit: true
  request_timeout: 5s
  default_cooldown: 2s
  max_rate_limit_retries: 7
  requests_per_second: 1.5
  burst: 3
  continue_on_error: false
output:
  dir: out
  managers_file: m.csv
  stats_file: s.csv
db:
  dsn: postgres://localhost/records
  records_table: h2h
storage:
  gcs_bucket: bucket
  prefix: runs
pubsub:
  project_id: proj
  topic_name: runs
metrics:
  addr: ":9100"
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL != "http://localhost:9000" || cfg.Source.UserAgent != "test-agent" {
		t.Fatalf("expected source overrides to apply: %+v", cfg.Source)
	}
	if got := cfg.Seasons(); got.First != 2010 || got.Last != 2012 {
		t.Fatalf("expected seasons 2010-2012, got %+v", got)
	}
	if !cfg.Crawler.StrictPageLimit || cfg.Crawler.ContinueOnError || cfg.Crawler.MaxPages != 20 {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Crawler.RequestTimeout != 5*time.Second || cfg.Crawler.DefaultCooldown != 2*time.Second {
		t.Fatalf("expected durations to decode: %+v", cfg.Crawler)
	}
	if cfg.Crawler.RequestsPerSecond != 1.5 || cfg.Crawler.Burst != 3 || cfg.Crawler.MaxRateLimitRetries != 7 {
		t.Fatalf("expected rate overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.DB.RecordsTable != "h2h" || cfg.DB.ManagersTable != "season_managers" {
		t.Fatalf("expected table override and default: %+v", cfg.DB)
	}
	if cfg.Metrics.Addr != ":9100" || cfg.Logging.Development {
		t.Fatalf("expected metrics/logging overrides: %+v %+v", cfg.Metrics, cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing base url", mutate: func(c *Config) { c.Source.BaseURL = "" }, want: "source.base_url"},
		{name: "inverted seasons", mutate: func(c *Config) { c.Crawler.SeasonsFirst = 2022 }, want: "crawler.seasons"},
		{name: "zero season", mutate: func(c *Config) { c.Crawler.SeasonsFirst = 0 }, want: "crawler.seasons"},
		{name: "invalid max pages", mutate: func(c *Config) { c.Crawler.MaxPages = 0 }, want: "crawler.max_pages"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Crawler.RequestTimeout = 0 }, want: "crawler.request_timeout"},
		{name: "invalid cooldown", mutate: func(c *Config) { c.Crawler.DefaultCooldown = 0 }, want: "crawler.default_cooldown"},
		{name: "negative retries", mutate: func(c *Config) { c.Crawler.MaxRateLimitRetries = -1 }, want: "crawler.max_rate_limit_retries"},
		{
			name: "rate without burst",
			mutate: func(c *Config) {
				c.Crawler.RequestsPerSecond = 2
				c.Crawler.Burst = 0
			},
			want: "crawler.burst",
		},
		{name: "missing stats file", mutate: func(c *Config) { c.Output.StatsFile = "" }, want: "output.managers_file"},
		{name: "topic without project", mutate: func(c *Config) { c.PubSub.TopicName = "runs" }, want: "pubsub.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
