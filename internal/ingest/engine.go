// Package ingest loads crawled batches into their destination tables with
// either full-replace or merge-upsert semantics.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// ErrUnknownStrategy is returned for a destination with an unsupported strategy.
var ErrUnknownStrategy = errors.New("unknown load strategy")

// Store opens write batches against a destination table.
type Store interface {
	Begin(ctx context.Context, schema crawler.Schema) (Batch, error)
}

// Batch is one atomic load. A failed Insert or Upsert must leave the batch
// usable for the records that follow.
type Batch interface {
	// Truncate empties the table and restarts its identity.
	Truncate(ctx context.Context) error
	// Insert adds p unless its reference already exists; it reports whether a row was written.
	Insert(ctx context.Context, p crawler.Product) (bool, error)
	// Upsert writes p, overwriting the schema columns of an existing reference;
	// it reports true for a new row and false for an update.
	Upsert(ctx context.Context, p crawler.Product) (bool, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Engine implements crawler.Loader on top of a Store.
type Engine struct {
	store  Store
	logger *zap.Logger
}

var _ crawler.Loader = (*Engine)(nil)

// New creates an Engine.
func New(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// Load writes records into dest. Per-record failures are counted and logged;
// only begin, truncate, and commit failures fail the whole load.
func (e *Engine) Load(ctx context.Context, dest crawler.Destination, records []crawler.Product) (crawler.LoadResult, error) {
	if e.store == nil {
		return crawler.LoadResult{}, errors.New("ingest store is not configured")
	}
	if err := dest.Schema.Validate(); err != nil {
		return crawler.LoadResult{}, err
	}
	switch dest.Strategy {
	case crawler.StrategyReplace, crawler.StrategyUpsert:
	default:
		return crawler.LoadResult{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, dest.Strategy)
	}

	table := dest.Schema.Table
	logger := e.logger.With(zap.String("table", table), zap.String("strategy", string(dest.Strategy)))

	batch, err := e.store.Begin(ctx, dest.Schema)
	if err != nil {
		return crawler.LoadResult{}, fmt.Errorf("begin load: %w", err)
	}
	finished := false
	defer func() {
		if finished {
			return
		}
		if rbErr := batch.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Warn("rollback load", zap.Error(rbErr))
		}
	}()

	if dest.Strategy == crawler.StrategyReplace {
		if err := batch.Truncate(ctx); err != nil {
			return crawler.LoadResult{}, fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	var res crawler.LoadResult
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return crawler.LoadResult{}, err
		}
		rec = dest.Schema.Project(rec)
		if dest.Strategy == crawler.StrategyReplace {
			inserted, err := batch.Insert(ctx, rec)
			switch {
			case err != nil:
				res.Failed++
				logger.Warn("record insert failed", zap.String("reference", rec.Reference), zap.Error(err))
			case !inserted:
				res.SkippedDuplicate++
				logger.Info("duplicate reference skipped", zap.String("reference", rec.Reference))
			default:
				res.Inserted++
			}
			continue
		}
		inserted, err := batch.Upsert(ctx, rec)
		switch {
		case err != nil:
			res.Failed++
			logger.Warn("record upsert failed", zap.String("reference", rec.Reference), zap.Error(err))
		case inserted:
			res.Inserted++
		default:
			res.Updated++
		}
	}

	finished = true
	if err := batch.Commit(ctx); err != nil {
		return crawler.LoadResult{Failed: len(records)}, fmt.Errorf("commit %s: %w", table, err)
	}
	logger.Info("load committed",
		zap.Int("records", len(records)),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped_duplicate", res.SkippedDuplicate),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
