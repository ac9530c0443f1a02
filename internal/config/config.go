// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
)

// Provider names accepted by the store, runs, blob and publisher sections.
const (
	ProviderNoop     = "noop"
	ProviderMemory   = "memory"
	ProviderPostgres = "postgres"
	ProviderLocal    = "local"
	ProviderGCS      = "gcs"
	ProviderPubSub   = "pubsub"
)

// Config captures every knob loaded via Viper.
type Config struct {
	Logging   LoggingConfig         `mapstructure:"logging"`
	Crawler   CrawlerConfig         `mapstructure:"crawler"`
	Browser   BrowserConfig         `mapstructure:"browser"`
	Retry     RetryConfig           `mapstructure:"retry"`
	Store     StoreConfig           `mapstructure:"store"`
	Runs      RunsConfig            `mapstructure:"runs"`
	Blob      BlobConfig            `mapstructure:"blob"`
	Publisher PublisherConfig       `mapstructure:"publisher"`
	Audit     AuditConfig           `mapstructure:"audit"`
	Server    ServerConfig          `mapstructure:"server"`
	Sites     map[string]SiteConfig `mapstructure:"sites"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CrawlerConfig governs a site run.
type CrawlerConfig struct {
	DaysBack              int           `mapstructure:"days_back"`
	SkipExisting          bool          `mapstructure:"skip_existing"`
	FullCrawlPages        int           `mapstructure:"full_crawl_pages"`
	MaxForbiddenResponses int           `mapstructure:"max_forbidden_responses"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	RespectRobots         bool          `mapstructure:"respect_robots"`
	RatePerSecond         float64       `mapstructure:"rate_per_second"`
	UserAgent             string        `mapstructure:"user_agent"`
}

// BrowserConfig configures the chromedp session.
type BrowserConfig struct {
	Headless   bool          `mapstructure:"headless"`
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
	ExecPath   string        `mapstructure:"exec_path"`
	MaxTabs    int           `mapstructure:"max_tabs"`
}

// RetryConfig mirrors session.RetryPolicy.
type RetryConfig struct {
	MaxAttempts        int           `mapstructure:"max_attempts"`
	BlockedMaxAttempts int           `mapstructure:"blocked_max_attempts"`
	BaseDelay          time.Duration `mapstructure:"base_delay"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
	BlockCooldownMin   time.Duration `mapstructure:"block_cooldown_min"`
	BlockCooldownMax   time.Duration `mapstructure:"block_cooldown_max"`
}

// StoreConfig selects the posting store.
type StoreConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds connection settings shared by the store and the run ledger.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RunsConfig selects the run ledger.
type RunsConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// BlobConfig selects where audit snapshots go.
type BlobConfig struct {
	Provider string        `mapstructure:"provider"`
	Local    LocalBlob     `mapstructure:"local"`
	GCS      GCSBlobConfig `mapstructure:"gcs"`
}

// LocalBlob is the filesystem snapshot root.
type LocalBlob struct {
	Dir string `mapstructure:"dir"`
}

// GCSBlobConfig names the snapshot bucket.
type GCSBlobConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PublisherConfig selects the posting event publisher.
type PublisherConfig struct {
	Provider string       `mapstructure:"provider"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// AuditConfig places the suspicious-content trail.
type AuditConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// APIKey, when set, is required on every /v1 request.
	APIKey string `mapstructure:"api_key"`
}

// SiteConfig overrides fields of the built-in site table.
type SiteConfig struct {
	MaxPages     int     `mapstructure:"max_pages"`
	DelaySeconds float64 `mapstructure:"delay_seconds"`
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Load builds a Config from .env, an optional file and the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &crawler.ConfigurationError{Reason: "read config " + path, Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &crawler.ConfigurationError{Reason: "unmarshal config", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("crawler.days_back", 1)
	v.SetDefault("crawler.skip_existing", false)
	v.SetDefault("crawler.full_crawl_pages", 1000)
	v.SetDefault("crawler.max_forbidden_responses", 3)
	v.SetDefault("crawler.request_timeout", 20*time.Second)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.rate_per_second", 1.0)
	v.SetDefault("crawler.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout", 30*time.Second)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.max_tabs", 4)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.blocked_max_attempts", 2)
	v.SetDefault("retry.base_delay", 2*time.Second)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("retry.block_cooldown_min", 10*time.Second)
	v.SetDefault("retry.block_cooldown_max", 15*time.Second)
	v.SetDefault("store.provider", ProviderMemory)
	v.SetDefault("store.postgres.table", "job_postings")
	v.SetDefault("store.postgres.max_conns", 4)
	v.SetDefault("runs.provider", ProviderNoop)
	v.SetDefault("blob.provider", ProviderMemory)
	v.SetDefault("blob.local.dir", "data/audit")
	v.SetDefault("publisher.provider", ProviderNoop)
	v.SetDefault("audit.dir", "logs/suspicious_content")
	v.SetDefault("server.port", 9090)

	// Empty defaults let AutomaticEnv bind keys that have no built-in value.
	for _, key := range []string{
		"store.postgres.dsn",
		"runs.postgres.dsn",
		"blob.gcs.bucket",
		"blob.gcs.prefix",
		"publisher.pubsub.project_id",
		"publisher.pubsub.topic",
		"server.api_key",
	} {
		v.SetDefault(key, "")
	}
}

// Validate enforces required values and reasonable limits. Every failure is a
// crawler.ConfigurationError.
func (c Config) Validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Crawler.RequestTimeout <= 0 {
		fail("crawler.request_timeout must be > 0")
	}
	if c.Crawler.RatePerSecond <= 0 {
		fail("crawler.rate_per_second must be > 0")
	}
	if c.Crawler.DaysBack < 0 {
		fail("crawler.days_back must be >= 0")
	}
	if c.Crawler.FullCrawlPages <= 0 {
		fail("crawler.full_crawl_pages must be > 0")
	}
	if c.Crawler.MaxForbiddenResponses <= 0 {
		fail("crawler.max_forbidden_responses must be > 0")
	}
	if c.Browser.NavTimeout <= 0 {
		fail("browser.nav_timeout must be > 0")
	}
	if c.Browser.MaxTabs < 0 {
		fail("browser.max_tabs must be >= 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		fail("retry.max_attempts must be > 0")
	}
	if c.Retry.BlockedMaxAttempts < 0 {
		fail("retry.blocked_max_attempts must be >= 0")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		fail("retry delays must satisfy 0 <= base_delay <= max_delay")
	}
	if c.Retry.BlockCooldownMin < 0 || c.Retry.BlockCooldownMax < c.Retry.BlockCooldownMin {
		fail("retry cooldowns must satisfy 0 <= block_cooldown_min <= block_cooldown_max")
	}

	switch c.Store.Provider {
	case ProviderMemory:
	case ProviderPostgres:
		if c.Store.Postgres.DSN == "" {
			fail("store.postgres.dsn is required for the postgres store")
		}
		if !tableName.MatchString(c.Store.Postgres.Table) {
			fail("store.postgres.table %q is not a valid table name", c.Store.Postgres.Table)
		}
	default:
		fail("unknown store.provider %q", c.Store.Provider)
	}

	switch c.Runs.Provider {
	case ProviderNoop:
	case ProviderPostgres:
		if c.Runs.Postgres.DSN == "" {
			fail("runs.postgres.dsn is required for the postgres run ledger")
		}
	default:
		fail("unknown runs.provider %q", c.Runs.Provider)
	}

	switch c.Blob.Provider {
	case ProviderMemory:
	case ProviderLocal:
		if c.Blob.Local.Dir == "" {
			fail("blob.local.dir is required for the local blob store")
		}
	case ProviderGCS:
		if c.Blob.GCS.Bucket == "" {
			fail("blob.gcs.bucket is required for the gcs blob store")
		}
	default:
		fail("unknown blob.provider %q", c.Blob.Provider)
	}

	switch c.Publisher.Provider {
	case ProviderNoop, ProviderMemory:
	case ProviderPubSub:
		if c.Publisher.PubSub.ProjectID == "" || c.Publisher.PubSub.Topic == "" {
			fail("publisher.pubsub.project_id and publisher.pubsub.topic are required for pubsub")
		}
	default:
		fail("unknown publisher.provider %q", c.Publisher.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		fail("server.port must be in 1..65535")
	}

	for name, site := range c.Sites {
		if _, err := crawler.ParsePlatform(name); err != nil {
			fail("sites.%s: unsupported site", name)
			continue
		}
		if site.MaxPages < 0 || site.DelaySeconds < 0 {
			fail("sites.%s: max_pages and delay_seconds must be >= 0", name)
		}
	}

	if len(problems) > 0 {
		return &crawler.ConfigurationError{Reason: strings.Join(problems, "; ")}
	}
	return nil
}

// SiteTable returns the built-in site table with the configured overrides applied.
func (c Config) SiteTable() map[crawler.Platform]crawler.SiteConfig {
	sites := crawler.DefaultSites()
	for name, o := range c.Sites {
		platform, err := crawler.ParsePlatform(name)
		if err != nil {
			continue
		}
		site := sites[platform]
		if o.MaxPages > 0 {
			site.MaxPages = o.MaxPages
		}
		if o.DelaySeconds > 0 {
			site.Delay = time.Duration(o.DelaySeconds * float64(time.Second))
		}
		sites[platform] = site
	}
	return sites
}

// RetryPolicy converts the retry section.
func (c Config) RetryPolicy() session.RetryPolicy {
	return session.RetryPolicy{
		MaxAttempts:        c.Retry.MaxAttempts,
		BlockedMaxAttempts: c.Retry.BlockedMaxAttempts,
		BaseDelay:          c.Retry.BaseDelay,
		MaxDelay:           c.Retry.MaxDelay,
		BlockCooldownMin:   c.Retry.BlockCooldownMin,
		BlockCooldownMax:   c.Retry.BlockCooldownMax,
	}
}
