// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/catalog-crawler/internal/adapter"
	"github.com/JakeFAU/catalog-crawler/internal/browser"
	"github.com/JakeFAU/catalog-crawler/internal/catalog"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/storage/gcs"
	"github.com/JakeFAU/catalog-crawler/internal/storage/local"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

// EnvPrefix prefixes every environment override, e.g. CATALOG_DB_DSN.
const EnvPrefix = "CATALOG"

// Capture backends.
const (
	CaptureLocal  = "local"
	CaptureGCS    = "gcs"
	CaptureMemory = "memory"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	DB         DBConfig         `mapstructure:"db"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Categories CategoriesConfig `mapstructure:"categories"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig controls Chrome and the page waits.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	ExecPath          string        `mapstructure:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent"`
	LaunchAttempts    int           `mapstructure:"launch_attempts"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout"`
	WaitPolicy        string        `mapstructure:"wait_policy"`
	ScrollStep        int           `mapstructure:"scroll_step"`
	ScrollInterval    time.Duration `mapstructure:"scroll_interval"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	MaxScrollSteps    int           `mapstructure:"max_scroll_steps"`
	ViewportWidth     int           `mapstructure:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"`
	AppearTimeout     time.Duration `mapstructure:"appear_timeout"`
	DisappearTimeout  time.Duration `mapstructure:"disappear_timeout"`
	RequiredTimeout   time.Duration `mapstructure:"required_timeout"`
}

// CrawlConfig selects sources and paces the paginator.
type CrawlConfig struct {
	Sources    []string                      `mapstructure:"sources"`
	MaxPages   int                           `mapstructure:"max_pages"`
	PageDelay  time.Duration                 `mapstructure:"page_delay"`
	RunTimeout time.Duration                 `mapstructure:"run_timeout"`
	Categories map[string][]crawler.Category `mapstructure:"categories"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// IngestConfig picks the load strategy per source.
type IngestConfig struct {
	DefaultStrategy string            `mapstructure:"default_strategy"`
	Strategies      map[string]string `mapstructure:"strategies"`
}

// CaptureConfig configures diagnostic screenshots.
type CaptureConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Backend string       `mapstructure:"backend"`
	Prefix  string       `mapstructure:"prefix"`
	Local   local.Config `mapstructure:"local"`
	GCS     gcs.Config   `mapstructure:"gcs"`
}

// PubSubConfig holds where run reports are published. An empty topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig addresses the Pushgateway. An empty URL disables pushing.
type MetricsConfig struct {
	PushURL string `mapstructure:"push_url"`
	Job     string `mapstructure:"job"`
}

// CategoriesConfig extends the built-in category vocabulary.
type CategoriesConfig struct {
	Mapping map[string]string `mapstructure:"mapping"`
}

// LoadEnvFiles loads .env.local then .env into the process environment.
// Missing files are ignored; variables already set win.
func LoadEnvFiles() error {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from path (or the default search paths) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("catalogcrawler")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/catalogcrawler")
		v.AddConfigPath("$HOME/.catalogcrawler")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	b := browser.DefaultConfig()
	t := adapter.DefaultTiming()

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")

	v.SetDefault("browser.headless", b.Headless)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.launch_attempts", b.LaunchAttempts)
	v.SetDefault("browser.navigation_timeout", b.NavigationTimeout)
	v.SetDefault("browser.operation_timeout", b.OperationTimeout)
	v.SetDefault("browser.wait_policy", string(b.WaitPolicy))
	v.SetDefault("browser.scroll_step", b.ScrollStep)
	v.SetDefault("browser.scroll_interval", b.ScrollInterval)
	v.SetDefault("browser.settle_delay", b.SettleDelay)
	v.SetDefault("browser.max_scroll_steps", b.MaxScrollSteps)
	v.SetDefault("browser.viewport_width", t.ViewportWidth)
	v.SetDefault("browser.viewport_height", t.ViewportHeight)
	v.SetDefault("browser.appear_timeout", t.AppearTimeout)
	v.SetDefault("browser.disappear_timeout", t.DisappearTimeout)
	v.SetDefault("browser.required_timeout", t.RequiredTimeout)

	v.SetDefault("crawl.sources", []string{})
	v.SetDefault("crawl.max_pages", crawler.DefaultMaxPages)
	v.SetDefault("crawl.page_delay", crawler.DefaultPageDelay)
	v.SetDefault("crawl.run_timeout", 6*time.Hour)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)

	v.SetDefault("ingest.default_strategy", string(crawler.StrategyReplace))

	v.SetDefault("capture.enabled", false)
	v.SetDefault("capture.backend", CaptureLocal)
	v.SetDefault("capture.prefix", "captures")
	v.SetDefault("capture.local.base_dir", "data/captures")
	v.SetDefault("capture.gcs.bucket", "")
	v.SetDefault("capture.gcs.prefix", "")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")

	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "catalog_crawler")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := browser.ParseWaitPolicy(c.Browser.WaitPolicy); err != nil {
		return fmt.Errorf("browser.wait_policy: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Crawl.PageDelay < 0 {
		return fmt.Errorf("crawl.page_delay must be >= 0")
	}
	if _, err := catalog.Select(c.Crawl.Sources); err != nil {
		return fmt.Errorf("crawl.sources: %w", err)
	}
	for name := range c.Crawl.Categories {
		if _, ok := catalog.Lookup(name); !ok {
			return fmt.Errorf("crawl.categories: unknown source %q", name)
		}
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 {
		return fmt.Errorf("db.max_conns and db.min_conns must be >= 0")
	}
	if _, err := crawler.ParseStrategy(c.Ingest.DefaultStrategy); err != nil {
		return fmt.Errorf("ingest.default_strategy: %w", err)
	}
	for name, s := range c.Ingest.Strategies {
		if _, ok := catalog.Lookup(name); !ok {
			return fmt.Errorf("ingest.strategies: unknown source %q", name)
		}
		if _, err := crawler.ParseStrategy(s); err != nil {
			return fmt.Errorf("ingest.strategies.%s: %w", name, err)
		}
	}
	if c.Capture.Enabled {
		switch c.Capture.Backend {
		case CaptureLocal:
			if strings.TrimSpace(c.Capture.Local.BaseDir) == "" {
				return fmt.Errorf("capture.local.base_dir is required for the local backend")
			}
		case CaptureGCS:
			if c.Capture.GCS.Bucket == "" {
				return fmt.Errorf("capture.gcs.bucket is required for the gcs backend")
			}
		case CaptureMemory:
		default:
			return fmt.Errorf("capture.backend %q is not one of local, gcs, memory", c.Capture.Backend)
		}
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is")
	}
	return nil
}

// BrowserSettings converts the browser section for the launcher.
func (c Config) BrowserSettings() browser.Config {
	policy, _ := browser.ParseWaitPolicy(c.Browser.WaitPolicy)
	return browser.Config{
		Headless:          c.Browser.Headless,
		NoSandbox:         c.Browser.NoSandbox,
		ExecPath:          c.Browser.ExecPath,
		UserAgent:         c.Browser.UserAgent,
		LaunchAttempts:    c.Browser.LaunchAttempts,
		NavigationTimeout: c.Browser.NavigationTimeout,
		OperationTimeout:  c.Browser.OperationTimeout,
		WaitPolicy:        policy,
		ScrollStep:        c.Browser.ScrollStep,
		ScrollInterval:    c.Browser.ScrollInterval,
		SettleDelay:       c.Browser.SettleDelay,
		MaxScrollSteps:    c.Browser.MaxScrollSteps,
	}
}

// Timing converts the viewport and wait budgets for the adapters.
func (c Config) Timing() adapter.Timing {
	return adapter.Timing{
		ViewportWidth:    c.Browser.ViewportWidth,
		ViewportHeight:   c.Browser.ViewportHeight,
		AppearTimeout:    c.Browser.AppearTimeout,
		DisappearTimeout: c.Browser.DisappearTimeout,
		RequiredTimeout:  c.Browser.RequiredTimeout,
	}
}

// CatalogOptions converts the crawl and ingest sections. sources, when
// non-empty, replaces crawl.sources.
func (c Config) CatalogOptions(sources []string) (catalog.Options, error) {
	def, err := crawler.ParseStrategy(c.Ingest.DefaultStrategy)
	if err != nil {
		return catalog.Options{}, err
	}
	strategies := make(map[string]crawler.Strategy, len(c.Ingest.Strategies))
	for name, raw := range c.Ingest.Strategies {
		s, err := crawler.ParseStrategy(raw)
		if err != nil {
			return catalog.Options{}, err
		}
		strategies[name] = s
	}
	if len(sources) == 0 {
		sources = c.Crawl.Sources
	}
	return catalog.Options{
		Sources:         sources,
		DefaultStrategy: def,
		Strategies:      strategies,
		Categories:      c.Crawl.Categories,
	}, nil
}

// PostgresSettings converts the db section.
func (c Config) PostgresSettings() postgres.Config {
	return postgres.Config{
		DSN:             c.DB.DSN,
		MaxConns:        c.DB.MaxConns,
		MinConns:        c.DB.MinConns,
		MaxConnLifetime: c.DB.MaxConnLifetime,
	}
}
