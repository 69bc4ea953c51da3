package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/catalog-crawler/internal/browser"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: true
  level: debug
browser:
  headless: false
  wait_policy: load
  navigation_timeout: 45s
  scroll_step: 500
crawl:
  sources: [toptex, makito]
  max_pages: 12
  page_delay: 500ms
  categories:
    toptex:
      - name: polos
        url: https://www.toptex.fr/polos.html
db:
  dsn: postgres://catalog@localhost/catalog
  max_conns: 8
ingest:
  default_strategy: upsert
  strategies:
    payper: replace
capture:
  enabled: true
  backend: gcs
  gcs:
    bucket: captures
categories:
  mapping:
    gorras: Casquettes
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if cfg.Browser.Headless || cfg.Browser.NavigationTimeout != 45*time.Second {
		t.Fatalf("expected browser overrides, got %+v", cfg.Browser)
	}
	if got := cfg.BrowserSettings().WaitPolicy; got != browser.WaitLoad {
		t.Fatalf("expected load wait policy, got %q", got)
	}
	if cfg.Crawl.MaxPages != 12 || cfg.Crawl.PageDelay != 500*time.Millisecond {
		t.Fatalf("expected crawl overrides, got %+v", cfg.Crawl)
	}
	cats := cfg.Crawl.Categories["toptex"]
	if len(cats) != 1 || cats[0].URL != "https://www.toptex.fr/polos.html" {
		t.Fatalf("expected toptex category override, got %+v", cfg.Crawl.Categories)
	}
	if cfg.DB.MaxConns != 8 || cfg.PostgresSettings().DSN != "postgres://catalog@localhost/catalog" {
		t.Fatalf("expected db overrides, got %+v", cfg.DB)
	}
	if cfg.Categories.Mapping["gorras"] != "Casquettes" {
		t.Fatalf("expected category mapping, got %+v", cfg.Categories.Mapping)
	}
	if cfg.Capture.GCS.Bucket != "captures" {
		t.Fatalf("expected gcs bucket, got %+v", cfg.Capture)
	}

	opts, err := cfg.CatalogOptions(nil)
	if err != nil {
		t.Fatalf("CatalogOptions() error = %v", err)
	}
	if opts.DefaultStrategy != crawler.StrategyUpsert || opts.Strategies["payper"] != crawler.StrategyReplace {
		t.Fatalf("unexpected strategies: %+v", opts)
	}
	if strings.Join(opts.Sources, ",") != "toptex,makito" {
		t.Fatalf("expected configured sources, got %v", opts.Sources)
	}
	opts, err = cfg.CatalogOptions([]string{"payper"})
	if err != nil {
		t.Fatalf("CatalogOptions() error = %v", err)
	}
	if len(opts.Sources) != 1 || opts.Sources[0] != "payper" {
		t.Fatalf("expected flag sources to win, got %v", opts.Sources)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.MaxPages != crawler.DefaultMaxPages || cfg.Crawl.PageDelay != crawler.DefaultPageDelay {
		t.Fatalf("expected paginator defaults, got %+v", cfg.Crawl)
	}
	if cfg.Ingest.DefaultStrategy != string(crawler.StrategyReplace) {
		t.Fatalf("expected replace strategy by default, got %q", cfg.Ingest.DefaultStrategy)
	}
	if cfg.Capture.Enabled || cfg.Capture.Local.BaseDir == "" {
		t.Fatalf("expected capture disabled with a local dir, got %+v", cfg.Capture)
	}
	if cfg.Metrics.Job != "catalog_crawler" {
		t.Fatalf("expected default metrics job, got %q", cfg.Metrics.Job)
	}
	timing := cfg.Timing()
	if timing.ViewportWidth != 1280 || timing.DisappearTimeout != 15*time.Second {
		t.Fatalf("unexpected timing defaults: %+v", timing)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CATALOG_DB_DSN", "postgres://env@localhost/catalog")
	t.Setenv("CATALOG_CRAWL_MAX_PAGES", "7")
	t.Setenv("CATALOG_PUBSUB_PROJECT_ID", "catalog-prod")
	t.Setenv("CATALOG_PUBSUB_TOPIC", "catalog-runs")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB.DSN != "postgres://env@localhost/catalog" {
		t.Fatalf("expected dsn from env, got %q", cfg.DB.DSN)
	}
	if cfg.Crawl.MaxPages != 7 {
		t.Fatalf("expected max pages from env, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.PubSub.Topic != "catalog-runs" || cfg.PubSub.ProjectID != "catalog-prod" {
		t.Fatalf("expected pubsub from env, got %+v", cfg.PubSub)
	}
}

func TestLoadEnvFilesIgnoresMissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}

	if err := os.WriteFile(".env", []byte("CATALOG_TEST_ENV_FILE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CATALOG_TEST_ENV_FILE", "")
	os.Unsetenv("CATALOG_TEST_ENV_FILE") //nolint:errcheck // restored by t.Setenv
	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("CATALOG_TEST_ENV_FILE"); got != "loaded" {
		t.Fatalf("expected .env value, got %q", got)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Browser: BrowserConfig{NavigationTimeout: time.Minute, WaitPolicy: "network_idle"},
		Crawl:   CrawlConfig{MaxPages: 10, PageDelay: time.Second},
		Ingest:  IngestConfig{DefaultStrategy: "replace"},
		Capture: CaptureConfig{Backend: CaptureLocal},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad wait policy", mutate: func(c *Config) { c.Browser.WaitPolicy = "domcontent" }, wantErr: "browser.wait_policy"},
		{name: "no navigation timeout", mutate: func(c *Config) { c.Browser.NavigationTimeout = 0 }, wantErr: "browser.navigation_timeout"},
		{name: "no page cap", mutate: func(c *Config) { c.Crawl.MaxPages = 0 }, wantErr: "crawl.max_pages"},
		{name: "negative delay", mutate: func(c *Config) { c.Crawl.PageDelay = -time.Second }, wantErr: "crawl.page_delay"},
		{name: "unknown source", mutate: func(c *Config) { c.Crawl.Sources = []string{"amazon"} }, wantErr: "crawl.sources"},
		{
			name:    "categories for unknown source",
			mutate:  func(c *Config) { c.Crawl.Categories = map[string][]crawler.Category{"amazon": {{URL: "https://x"}}} },
			wantErr: "crawl.categories",
		},
		{name: "negative conns", mutate: func(c *Config) { c.DB.MaxConns = -1 }, wantErr: "db.max_conns"},
		{name: "bad strategy", mutate: func(c *Config) { c.Ingest.DefaultStrategy = "append" }, wantErr: "ingest.default_strategy"},
		{
			name:    "bad source strategy",
			mutate:  func(c *Config) { c.Ingest.Strategies = map[string]string{"toptex": "append"} },
			wantErr: "ingest.strategies.toptex",
		},
		{
			name: "capture local without dir",
			mutate: func(c *Config) {
				c.Capture.Enabled = true
			},
			wantErr: "capture.local.base_dir",
		},
		{
			name: "capture gcs without bucket",
			mutate: func(c *Config) {
				c.Capture.Enabled = true
				c.Capture.Backend = CaptureGCS
			},
			wantErr: "capture.gcs.bucket",
		},
		{
			name: "capture unknown backend",
			mutate: func(c *Config) {
				c.Capture.Enabled = true
				c.Capture.Backend = "s3"
			},
			wantErr: "capture.backend",
		},
		{name: "topic without project", mutate: func(c *Config) { c.PubSub.Topic = "runs" }, wantErr: "pubsub.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
