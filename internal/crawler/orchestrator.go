package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Source is a fully wired catalog: its adapter, its categories in crawl
// order, and where its batch lands.
type Source struct {
	Name        string
	Adapter     Adapter
	Categories  []Category
	Destination Destination
}

// OrchestratorDeps wires the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Sessions  SessionFactory
	Paginator *Paginator
	Loader    Loader
	Clock     Clock
	IDs       IDGenerator
	Logger    *zap.Logger
}

// Orchestrator runs sources one after another and aggregates a RunReport.
type Orchestrator struct {
	sessions  SessionFactory
	paginator *Paginator
	loader    Loader
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// NewOrchestrator validates deps and builds an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session factory is required")
	}
	if deps.Loader == nil {
		return nil, errors.New("loader is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("id generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	paginator := deps.Paginator
	if paginator == nil {
		paginator = NewPaginator(DefaultMaxPages, DefaultPageDelay, logger)
	}
	return &Orchestrator{
		sessions:  deps.Sessions,
		paginator: paginator,
		loader:    deps.Loader,
		clock:     deps.Clock,
		ids:       deps.IDs,
		logger:    logger,
	}, nil
}

// Run crawls and loads every source in order. A failing source never stops
// the ones after it; a cancelled context aborts the current source without
// loading and marks the remaining ones aborted.
func (o *Orchestrator) Run(ctx context.Context, sources []Source) RunReport {
	runID, err := o.ids.NewID()
	if err != nil {
		runID = fmt.Sprintf("run-%d", o.clock.Now().UnixNano())
		o.logger.Warn("generate run id failed; using fallback", zap.Error(err), zap.String("run_id", runID))
	}
	report := RunReport{RunID: runID, StartedAt: o.clock.Now()}
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.Int("sources", len(sources)))

	for i, src := range sources {
		if ctx.Err() != nil {
			report.Aborted = true
			for _, rest := range sources[i:] {
				report.Sources = append(report.Sources, SourceReport{
					Source:   rest.Name,
					Table:    rest.Destination.Schema.Table,
					Strategy: rest.Destination.Strategy,
					Status:   StatusAborted,
					Error:    "run aborted before source started",
				})
			}
			break
		}
		rep := o.runSource(ctx, src, logger.With(zap.String("source", src.Name)))
		if rep.Status == StatusAborted {
			report.Aborted = true
		}
		report.Sources = append(report.Sources, rep)
	}

	report.FinishedAt = o.clock.Now()
	totals := report.Totals()
	logger.Info("run finished",
		zap.String("status", string(report.Status())),
		zap.Duration("duration", report.Duration()),
		zap.Int("inserted", totals.Inserted),
		zap.Int("updated", totals.Updated),
		zap.Int("skipped_duplicate", totals.SkippedDuplicate),
		zap.Int("failed", totals.Failed),
	)
	return report
}

func (o *Orchestrator) runSource(ctx context.Context, src Source, logger *zap.Logger) (rep SourceReport) {
	rep = SourceReport{
		Source:    src.Name,
		Table:     src.Destination.Schema.Table,
		Strategy:  src.Destination.Strategy,
		StartedAt: o.clock.Now(),
	}
	defer func() {
		rep.FinishedAt = o.clock.Now()
		logger.Info("source finished",
			zap.String("status", string(rep.Status)),
			zap.Int("records", rep.Records),
			zap.Int("pages", rep.Pages),
			zap.Duration("duration", rep.Duration()),
		)
	}()

	batch, err := o.crawlSource(ctx, src, &rep, logger)
	if ctxErr := ctx.Err(); ctxErr != nil {
		rep.Status = StatusAborted
		rep.Error = ctxErr.Error()
		logger.Warn("source aborted; batch discarded", zap.Int("records", len(batch)))
		return rep
	}
	if err != nil {
		rep.Status = StatusFailed
		rep.Error = err.Error()
		logger.Error("source crawl failed", zap.Error(err))
		return rep
	}

	eligible := make([]Product, 0, len(batch))
	for _, p := range batch {
		if p.Eligible() {
			eligible = append(eligible, p)
			continue
		}
		rep.Ineligible++
	}
	if rep.Ineligible > 0 {
		logger.Warn("records without reference dropped", zap.Int("count", rep.Ineligible))
	}
	if len(eligible) == 0 {
		rep.Status = StatusNoop
		rep.Events = append(rep.Events, Event{
			Kind:    EventNoRecords,
			Message: "no eligible records; destination left untouched",
		})
		logger.Warn("no eligible records; skipping ingestion", zap.String("table", rep.Table))
		return rep
	}

	load, err := o.loader.Load(ctx, src.Destination, eligible)
	rep.Load = load
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			rep.Status = StatusAborted
			rep.Error = ctxErr.Error()
			return rep
		}
		rep.Status = StatusFailed
		rep.Error = fmt.Sprintf("ingest %s: %v", rep.Table, err)
		rep.Events = append(rep.Events, Event{Kind: EventIngestionFailed, Message: err.Error()})
		logger.Error("ingestion failed", zap.String("table", rep.Table), zap.Error(err))
		return rep
	}
	rep.Status = StatusSucceeded
	return rep
}

func (o *Orchestrator) crawlSource(ctx context.Context, src Source, rep *SourceReport, logger *zap.Logger) ([]Product, error) {
	session, err := o.sessions.Open(ctx)
	if err != nil {
		rep.Events = append(rep.Events, Event{Kind: EventSessionFailed, Message: err.Error()})
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("close browser session", zap.Error(cerr))
		}
	}()

	var batch []Product
	for _, cat := range src.Categories {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		started := time.Now()
		res := o.paginator.Crawl(ctx, session, src.Adapter, src.Name, cat)
		rep.Categories++
		rep.Pages += res.Pages
		rep.Events = append(rep.Events, res.Events...)
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if res.Err != nil {
			rep.SkippedCategories++
			rep.Events = append(rep.Events, Event{
				Kind:     EventCategorySkipped,
				Category: cat.Name,
				URL:      cat.URL,
				Message:  res.Err.Error(),
			})
			logger.Warn("category skipped",
				zap.String("category", cat.Name),
				zap.String("url", cat.URL),
				zap.Error(res.Err),
			)
		}
		batch = append(batch, res.Records...)
		rep.Records += len(res.Records)
		logger.Info("category crawled",
			zap.String("category", cat.Name),
			zap.Int("records", len(res.Records)),
			zap.Int("pages", res.Pages),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
	return batch, nil
}
