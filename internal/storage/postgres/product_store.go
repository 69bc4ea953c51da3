// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const recordSavepoint = "ingest_record"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// ProductStore loads product batches into per-source tables and serves searches over them.
type ProductStore struct {
	pool txBeginner
}

var _ ingest.Store = (*ProductStore)(nil)

// NewProductStore connects a pool using cfg.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ProductStore{pool: pool}, nil
}

// NewProductStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewProductStoreWithPool(pool txBeginner) (*ProductStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ProductStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Begin opens a transaction on schema.Table.
func (s *ProductStore) Begin(ctx context.Context, schema crawler.Schema) (ingest.Batch, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("product store is not configured")
	}
	if !validTableName.MatchString(schema.Table) {
		return nil, fmt.Errorf("invalid table name %q", schema.Table)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &batch{tx: tx, schema: schema}, nil
}

type batch struct {
	tx     pgx.Tx
	schema crawler.Schema
}

func (b *batch) Truncate(ctx context.Context) error {
	if _, err := b.tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", b.schema.Table)); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

func (b *batch) Insert(ctx context.Context, p crawler.Product) (bool, error) {
	query := insertStatement(b.schema) + " ON CONFLICT (reference) DO NOTHING"
	var written bool
	err := b.withSavepoint(ctx, func() error {
		tag, err := b.tx.Exec(ctx, query, values(b.schema, p)...)
		if err != nil {
			return err
		}
		written = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", p.Reference, err)
	}
	return written, nil
}

func (b *batch) Upsert(ctx context.Context, p crawler.Product) (bool, error) {
	query := upsertStatement(b.schema)
	var inserted bool
	err := b.withSavepoint(ctx, func() error {
		err := b.tx.QueryRow(ctx, query, values(b.schema, p)...).Scan(&inserted)
		if errors.Is(err, pgx.ErrNoRows) {
			// reference-only schema: the conflict was a no-op
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", p.Reference, err)
	}
	return inserted, nil
}

func (b *batch) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *batch) Rollback(ctx context.Context) error {
	if err := b.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// withSavepoint isolates fn so a failed statement does not abort the transaction.
func (b *batch) withSavepoint(ctx context.Context, fn func() error) error {
	if _, err := b.tx.Exec(ctx, "SAVEPOINT "+recordSavepoint); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := b.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+recordSavepoint); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := b.tx.Exec(ctx, "RELEASE SAVEPOINT "+recordSavepoint); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func insertStatement(schema crawler.Schema) string {
	cols := make([]string, len(schema.Columns))
	params := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = string(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// upsertStatement overwrites every non-key column and reports whether the row is new.
func upsertStatement(schema crawler.Schema) string {
	valueCols := schema.ValueColumns()
	conflict := "DO NOTHING"
	if len(valueCols) > 0 {
		sets := make([]string, len(valueCols))
		for i, c := range valueCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
		}
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (reference) %s RETURNING (xmax = 0) AS inserted",
		insertStatement(schema), conflict)
}

func values(schema crawler.Schema, p crawler.Product) []any {
	out := make([]any, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = p.Value(c)
	}
	return out
}
