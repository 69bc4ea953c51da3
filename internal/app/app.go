// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/adapter"
	"github.com/JakeFAU/catalog-crawler/internal/browser"
	"github.com/JakeFAU/catalog-crawler/internal/capture"
	"github.com/JakeFAU/catalog-crawler/internal/catalog"
	"github.com/JakeFAU/catalog-crawler/internal/category"
	"github.com/JakeFAU/catalog-crawler/internal/clock/system"
	"github.com/JakeFAU/catalog-crawler/internal/config"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/id/uuid"
	"github.com/JakeFAU/catalog-crawler/internal/ingest"
	"github.com/JakeFAU/catalog-crawler/internal/metrics"
	"github.com/JakeFAU/catalog-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/catalog-crawler/internal/storage/gcs"
	"github.com/JakeFAU/catalog-crawler/internal/storage/local"
	"github.com/JakeFAU/catalog-crawler/internal/storage/memory"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

// Options tune how New wires services. Zero values select the production wiring.
type Options struct {
	// DryRun loads into an in-memory store instead of Postgres.
	DryRun bool
	// Sessions replaces the Chrome launcher.
	Sessions crawler.SessionFactory
	// Publisher replaces the Pub/Sub publisher.
	Publisher crawler.Publisher
	// Metrics replaces the Prometheus recorder.
	Metrics *metrics.Recorder
	Clock   crawler.Clock
}

// App holds the shared, long-lived services of one CLI invocation.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store     ingest.Store
	products  *postgres.ProductStore
	dryStore  *memory.ProductStore
	sessions  crawler.SessionFactory
	publisher crawler.Publisher
	capturer  crawler.Capturer
	recorder  *metrics.Recorder
	clock     crawler.Clock

	closers []func() error
}

// New initializes every service the configuration asks for. It fails fast
// when a required service cannot be built.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:       cfg,
		logger:    logger,
		sessions:  opts.Sessions,
		publisher: opts.Publisher,
		recorder:  opts.Metrics,
		clock:     opts.Clock,
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.recorder == nil {
		a.recorder = metrics.New()
	}
	if a.sessions == nil {
		a.sessions = browser.NewLauncher(cfg.BrowserSettings(), logger.Named("browser"))
	}

	if opts.DryRun {
		logger.Info("dry run: records are loaded into memory only")
		a.dryStore = memory.NewProductStore()
		a.store = a.dryStore
	} else {
		products, err := postgres.NewProductStore(ctx, cfg.PostgresSettings())
		if err != nil {
			return nil, fmt.Errorf("init product store: %w", err)
		}
		a.products = products
		a.store = products
		a.closers = append(a.closers, func() error { products.Close(); return nil })
	}

	if a.publisher == nil && cfg.PubSub.Topic != "" {
		pub, err := pubsub.Dial(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		logger.Info("publishing run reports", zap.String("topic", cfg.PubSub.Topic))
		a.publisher = pub
		a.closers = append(a.closers, pub.Close)
	}

	if cfg.Capture.Enabled {
		blobs, err := a.captureStore(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init capture store: %w", err)
		}
		logger.Info("diagnostic captures enabled", zap.String("backend", cfg.Capture.Backend))
		a.capturer = capture.New(blobs, a.clock, cfg.Capture.Prefix, logger.Named("capture"))
	}
	return a, nil
}

func (a *App) captureStore(ctx context.Context) (crawler.BlobStore, error) {
	switch a.cfg.Capture.Backend {
	case config.CaptureGCS:
		store, err := gcs.Dial(ctx, a.cfg.Capture.GCS)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.CaptureMemory:
		return memory.NewBlobStore(), nil
	case config.CaptureLocal, "":
		return local.New(a.cfg.Capture.Local)
	default:
		return nil, fmt.Errorf("unknown capture backend %q", a.cfg.Capture.Backend)
	}
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Products returns the Postgres store, or nil on a dry run.
func (a *App) Products() *postgres.ProductStore {
	return a.products
}

// DryRunRows returns what a dry run loaded into table.
func (a *App) DryRunRows(table string) []crawler.Product {
	if a.dryStore == nil {
		return nil
	}
	return a.dryStore.Rows(table)
}

// Run crawls and loads the named sources (all configured ones when empty),
// then fans the report out to Pub/Sub and the Pushgateway. Fan-out failures
// are logged; the report is returned regardless.
func (a *App) Run(ctx context.Context, sourceNames []string) (crawler.RunReport, error) {
	opts, err := a.cfg.CatalogOptions(sourceNames)
	if err != nil {
		return crawler.RunReport{}, err
	}
	sources, err := catalog.Build(opts, adapter.Deps{
		Normalizer: category.NewDefault(a.cfg.Categories.Mapping),
		Capturer:   a.capturer,
		Timing:     a.cfg.Timing(),
		Logger:     a.logger.Named("adapter"),
	})
	if err != nil {
		return crawler.RunReport{}, fmt.Errorf("build sources: %w", err)
	}

	orchestrator, err := crawler.NewOrchestrator(crawler.OrchestratorDeps{
		Sessions:  a.sessions,
		Paginator: crawler.NewPaginator(a.cfg.Crawl.MaxPages, a.cfg.Crawl.PageDelay, a.logger.Named("paginator")),
		Loader:    ingest.New(a.store, a.logger.Named("ingest")),
		Clock:     a.clock,
		IDs:       uuid.NewUUIDGenerator(),
		Logger:    a.logger,
	})
	if err != nil {
		return crawler.RunReport{}, err
	}

	runCtx := ctx
	if a.cfg.Crawl.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.Crawl.RunTimeout)
		defer cancel()
	}
	report := orchestrator.Run(runCtx, sources)

	// fan-out uses the parent context so a timed-out run is still reported
	a.publish(ctx, report)
	a.pushMetrics(ctx, report)
	return report, nil
}

func (a *App) publish(ctx context.Context, report crawler.RunReport) {
	if a.publisher == nil || a.cfg.PubSub.Topic == "" {
		return
	}
	id, err := a.publisher.Publish(ctx, a.cfg.PubSub.Topic, report)
	if err != nil {
		a.logger.Error("publish run report failed", zap.String("run_id", report.RunID), zap.Error(err))
		return
	}
	a.logger.Info("run report published", zap.String("run_id", report.RunID), zap.String("message_id", id))
}

func (a *App) pushMetrics(ctx context.Context, report crawler.RunReport) {
	a.recorder.RecordRun(report)
	if a.cfg.Metrics.PushURL == "" {
		return
	}
	err := a.recorder.Push(ctx, metrics.PushConfig{URL: a.cfg.Metrics.PushURL, Job: a.cfg.Metrics.Job})
	if err != nil {
		a.logger.Error("push metrics failed", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// Close shuts down every service in reverse order of creation.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing services", zap.Error(err))
	}
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
}

// Search queries the Postgres store. It is unavailable on a dry run.
func (a *App) Search(ctx context.Context, q postgres.SearchQuery) (postgres.SearchResult, error) {
	if a.products == nil {
		return postgres.SearchResult{}, errors.New("search requires a database; not available on a dry run")
	}
	return a.products.Search(ctx, q)
}
