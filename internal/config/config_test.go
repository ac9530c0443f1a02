package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Provider != ProviderMemory || cfg.Runs.Provider != ProviderNoop {
		t.Fatalf("unexpected providers: %+v %+v", cfg.Store, cfg.Runs)
	}
	if cfg.Crawler.RequestTimeout != 20*time.Second || cfg.Crawler.DaysBack != 1 {
		t.Fatalf("unexpected crawler defaults: %+v", cfg.Crawler)
	}
	if cfg.Crawler.SkipExisting {
		t.Fatalf("skip_existing must default to false")
	}
	if got := cfg.RetryPolicy(); got.MaxAttempts != 3 || got.BlockedMaxAttempts != 2 || got.BlockCooldownMax != 15*time.Second {
		t.Fatalf("unexpected retry policy: %+v", got)
	}
	if cfg.Audit.Dir != "logs/suspicious_content" || cfg.Server.Port != 9090 {
		t.Fatalf("unexpected audit/server defaults: %+v %+v", cfg.Audit, cfg.Server)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: true
  level: debug
crawler:
  days_back: 3
  skip_existing: true
  request_timeout: 45s
  rate_per_second: 0.5
browser:
  headless: false
  nav_timeout: 1m
retry:
  max_attempts: 5
store:
  provider: postgres
  postgres:
    dsn: postgres://crawler@localhost/jobs
    table: postings_v2
runs:
  provider: postgres
  postgres:
    dsn: postgres://crawler@localhost/jobs
blob:
  provider: gcs
  gcs:
    bucket: audit-snapshots
publisher:
  provider: pubsub
  pubsub:
    project_id: jobs-prod
    topic: posting-saved
sites:
  saramin:
    max_pages: 4
    delay_seconds: 1.5
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CRAWLER_SERVER_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
	if cfg.Crawler.DaysBack != 3 || !cfg.Crawler.SkipExisting || cfg.Crawler.RequestTimeout != 45*time.Second {
		t.Fatalf("expected crawler overrides: %+v", cfg.Crawler)
	}
	if cfg.Browser.Headless || cfg.Browser.NavTimeout != time.Minute {
		t.Fatalf("expected browser overrides: %+v", cfg.Browser)
	}
	if cfg.Store.Postgres.Table != "postings_v2" || cfg.Store.Postgres.MaxConns != 4 {
		t.Fatalf("expected store overrides with default max conns: %+v", cfg.Store)
	}
	if cfg.Server.Port != 9191 {
		t.Fatalf("expected env to override port, got %d", cfg.Server.Port)
	}

	sites := cfg.SiteTable()
	saramin := sites[crawler.PlatformSaramin]
	if saramin.MaxPages != 4 || saramin.Delay != 1500*time.Millisecond {
		t.Fatalf("expected saramin overrides: %+v", saramin)
	}
	if wanted := sites[crawler.PlatformWanted]; wanted.MaxPages != 10 {
		t.Fatalf("expected wanted to keep its defaults: %+v", wanted)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !crawler.IsConfiguration(err) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CRAWLER_AUDIT_DIR=/var/log/jobs\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("CRAWLER_AUDIT_DIR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Audit.Dir != "/var/log/jobs" {
		t.Fatalf("expected .env value, got %q", cfg.Audit.Dir)
	}
}

func validConfig() Config {
	return Config{
		Crawler: CrawlerConfig{
			DaysBack:              1,
			FullCrawlPages:        1000,
			MaxForbiddenResponses: 3,
			RequestTimeout:        time.Second,
			RatePerSecond:         1,
		},
		Browser:   BrowserConfig{NavTimeout: time.Second},
		Retry:     RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 2 * time.Second},
		Store:     StoreConfig{Provider: ProviderMemory},
		Runs:      RunsConfig{Provider: ProviderNoop},
		Blob:      BlobConfig{Provider: ProviderMemory},
		Publisher: PublisherConfig{Provider: ProviderNoop},
		Server:    ServerConfig{Port: 9090},
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid timeout", func(c *Config) { c.Crawler.RequestTimeout = 0 }, "crawler.request_timeout"},
		{"invalid attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"negative blocked attempts", func(c *Config) { c.Retry.BlockedMaxAttempts = -1 }, "retry.blocked_max_attempts"},
		{"inverted delays", func(c *Config) { c.Retry.MaxDelay = 0 }, "retry delays"},
		{"unknown store", func(c *Config) { c.Store.Provider = "mongo" }, "store.provider"},
		{"postgres without dsn", func(c *Config) { c.Store.Provider = ProviderPostgres; c.Store.Postgres.Table = "jobs" }, "store.postgres.dsn"},
		{"bad table name", func(c *Config) {
			c.Store.Provider = ProviderPostgres
			c.Store.Postgres.DSN = "postgres://x"
			c.Store.Postgres.Table = "jobs; drop table x"
		}, "not a valid table name"},
		{"ledger without dsn", func(c *Config) { c.Runs.Provider = ProviderPostgres }, "runs.postgres.dsn"},
		{"gcs without bucket", func(c *Config) { c.Blob.Provider = ProviderGCS }, "blob.gcs.bucket"},
		{"pubsub without topic", func(c *Config) { c.Publisher.Provider = ProviderPubSub }, "publisher.pubsub"},
		{"unknown site override", func(c *Config) { c.Sites = map[string]SiteConfig{"linkedin": {MaxPages: 1}} }, "sites.linkedin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if !crawler.IsConfiguration(err) {
				t.Fatalf("expected a configuration error, got %T", err)
			}
		})
	}
}
