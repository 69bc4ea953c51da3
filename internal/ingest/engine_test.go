package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/ingest"
	"github.com/JakeFAU/catalog-crawler/internal/storage/memory"
)

var payperSchema = crawler.Schema{
	Table: "products_payper",
	Columns: []crawler.Column{
		crawler.ColumnReference, crawler.ColumnName, crawler.ColumnLink,
		crawler.ColumnImage, crawler.ColumnColorCount, crawler.ColumnCategory,
	},
}

func replace() crawler.Destination {
	return crawler.Destination{Schema: payperSchema, Strategy: crawler.StrategyReplace}
}

func upsert() crawler.Destination {
	return crawler.Destination{Schema: payperSchema, Strategy: crawler.StrategyUpsert}
}

func TestFullReplaceKeepsFirstOfDuplicateReferences(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	engine := ingest.New(store, nil)

	records := []crawler.Product{
		{Reference: "R1", Name: "first"},
		{Reference: "R2", Name: "second"},
		{Reference: "R1", Name: "dup"},
		{Reference: "R3", Name: "third"},
		{Reference: "R2", Name: "dup"},
	}
	res, err := engine.Load(context.Background(), replace(), records)
	require.NoError(t, err)
	assert.Equal(t, crawler.LoadResult{Inserted: 3, SkippedDuplicate: 2}, res)

	rows := store.Rows("products_payper")
	require.Len(t, rows, 3)
	assert.Equal(t, "first", rows[0].Name)
}

func TestFullReplaceDropsPreviousRows(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	engine := ingest.New(store, nil)
	ctx := context.Background()

	_, err := engine.Load(ctx, replace(), []crawler.Product{{Reference: "OLD", Name: "gone"}})
	require.NoError(t, err)
	_, err = engine.Load(ctx, replace(), []crawler.Product{{Reference: "NEW", Name: "kept"}})
	require.NoError(t, err)

	rows := store.Rows("products_payper")
	require.Len(t, rows, 1)
	assert.Equal(t, "NEW", rows[0].Reference)
}

func TestMergeUpsertOverwritesExistingReference(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	engine := ingest.New(store, nil)
	ctx := context.Background()

	res, err := engine.Load(ctx, upsert(), []crawler.Product{{Reference: "R1", Name: "A"}, {Reference: "R9", Name: "Z"}})
	require.NoError(t, err)
	assert.Equal(t, crawler.LoadResult{Inserted: 2}, res)

	res, err = engine.Load(ctx, upsert(), []crawler.Product{{Reference: "R1", Name: "B"}})
	require.NoError(t, err)
	assert.Equal(t, crawler.LoadResult{Updated: 1}, res)

	rows := store.Rows("products_payper")
	require.Len(t, rows, 2, "upsert never truncates")
	assert.Equal(t, "B", rows[0].Name)
	assert.Equal(t, "R9", rows[1].Reference)
}

func TestPerRecordFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	store.FailOn("BAD", errors.New("value too long for type character varying(64)"))
	engine := ingest.New(store, nil)

	res, err := engine.Load(context.Background(), replace(), []crawler.Product{
		{Reference: "R1"}, {Reference: "BAD"}, {Reference: "R2"},
	})
	require.NoError(t, err)
	assert.Equal(t, crawler.LoadResult{Inserted: 2, Failed: 1}, res)
	assert.Len(t, store.Rows("products_payper"), 2)
}

func TestLoadProjectsRecordsOntoSchema(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	engine := ingest.New(store, nil)

	_, err := engine.Load(context.Background(), upsert(), []crawler.Product{
		{Reference: "R1", Name: "Polo", Brand: "ignored", Price: "9,90", Colors: []string{"Rouge"}, ColorCount: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []crawler.Product{{Reference: "R1", Name: "Polo", ColorCount: 3}}, store.Rows("products_payper"))
}

func TestLoadRejectsUnknownStrategyAndBadSchema(t *testing.T) {
	t.Parallel()

	engine := ingest.New(memory.NewProductStore(), nil)

	_, err := engine.Load(context.Background(), crawler.Destination{Schema: payperSchema, Strategy: "append"}, nil)
	require.ErrorIs(t, err, ingest.ErrUnknownStrategy)

	_, err = engine.Load(context.Background(), crawler.Destination{Schema: crawler.Schema{Table: "x"}, Strategy: crawler.StrategyReplace}, nil)
	require.Error(t, err)
}

func TestLoadCancelledContextRollsBack(t *testing.T) {
	t.Parallel()

	store := memory.NewProductStore()
	engine := ingest.New(store, nil)
	ctx := context.Background()
	_, err := engine.Load(ctx, replace(), []crawler.Product{{Reference: "KEEP"}})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.Load(cancelled, replace(), []crawler.Product{{Reference: "NEW"}})
	require.ErrorIs(t, err, context.Canceled)

	rows := store.Rows("products_payper")
	require.Len(t, rows, 1, "a cancelled load leaves the committed table intact")
	assert.Equal(t, "KEEP", rows[0].Reference)
}

type failingStore struct {
	beginErr    error
	truncateErr error
	commitErr   error
	rolledBack  bool
}

func (s *failingStore) Begin(context.Context, crawler.Schema) (ingest.Batch, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &failingBatch{store: s}, nil
}

type failingBatch struct {
	store *failingStore
}

func (b *failingBatch) Truncate(context.Context) error { return b.store.truncateErr }
func (b *failingBatch) Insert(context.Context, crawler.Product) (bool, error) {
	return true, nil
}
func (b *failingBatch) Upsert(context.Context, crawler.Product) (bool, error) {
	return true, nil
}
func (b *failingBatch) Commit(context.Context) error { return b.store.commitErr }
func (b *failingBatch) Rollback(context.Context) error {
	b.store.rolledBack = true
	return nil
}

func TestLoadSourceLevelFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recs := []crawler.Product{{Reference: "R1"}, {Reference: "R2"}}

	_, err := ingest.New(&failingStore{beginErr: errors.New("dial tcp: connection refused")}, nil).Load(ctx, replace(), recs)
	require.ErrorContains(t, err, "begin load")

	fs := &failingStore{truncateErr: errors.New("permission denied for table")}
	_, err = ingest.New(fs, nil).Load(ctx, replace(), recs)
	require.ErrorContains(t, err, "truncate products_payper")
	assert.True(t, fs.rolledBack)

	fs = &failingStore{commitErr: errors.New("connection reset")}
	res, err := ingest.New(fs, nil).Load(ctx, upsert(), recs)
	require.ErrorContains(t, err, "commit products_payper")
	assert.Equal(t, crawler.LoadResult{Failed: 2}, res)
	assert.False(t, fs.rolledBack, "a failed commit already ends the transaction")
}
