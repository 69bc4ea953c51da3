package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/ingest"
)

var errBatchClosed = errors.New("batch already finished")

// ProductStore keeps one product table per destination in memory. Batches
// stage their writes on a copy and publish it on Commit.
type ProductStore struct {
	mu       sync.RWMutex
	tables   map[string]*table
	failures map[string]error
}

type table struct {
	order []string
	rows  map[string]crawler.Product
}

func newTable() *table {
	return &table{rows: make(map[string]crawler.Product)}
}

func (t *table) clone() *table {
	out := &table{
		order: append([]string(nil), t.order...),
		rows:  make(map[string]crawler.Product, len(t.rows)),
	}
	for k, v := range t.rows {
		out.rows[k] = v
	}
	return out
}

// NewProductStore constructs an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{
		tables:   make(map[string]*table),
		failures: make(map[string]error),
	}
}

// FailOn makes every write of reference fail with err.
func (s *ProductStore) FailOn(reference string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[reference] = err
}

// Rows returns the committed rows of name in insertion order.
func (s *ProductStore) Rows(name string) []crawler.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	out := make([]crawler.Product, 0, len(t.order))
	for _, ref := range t.order {
		out = append(out, t.rows[ref])
	}
	return out
}

// Begin opens a batch on schema.Table.
func (s *ProductStore) Begin(_ context.Context, schema crawler.Schema) (ingest.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staged := newTable()
	if t, ok := s.tables[schema.Table]; ok {
		staged = t.clone()
	}
	failures := make(map[string]error, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	return &productBatch{store: s, name: schema.Table, staged: staged, failures: failures}, nil
}

type productBatch struct {
	store    *ProductStore
	name     string
	staged   *table
	failures map[string]error
	done     bool
}

func (b *productBatch) Truncate(_ context.Context) error {
	if b.done {
		return errBatchClosed
	}
	b.staged = newTable()
	return nil
}

func (b *productBatch) Insert(_ context.Context, p crawler.Product) (bool, error) {
	if err := b.check(p); err != nil {
		return false, err
	}
	if _, exists := b.staged.rows[p.Reference]; exists {
		return false, nil
	}
	b.staged.order = append(b.staged.order, p.Reference)
	b.staged.rows[p.Reference] = p
	return true, nil
}

func (b *productBatch) Upsert(_ context.Context, p crawler.Product) (bool, error) {
	if err := b.check(p); err != nil {
		return false, err
	}
	_, exists := b.staged.rows[p.Reference]
	if !exists {
		b.staged.order = append(b.staged.order, p.Reference)
	}
	b.staged.rows[p.Reference] = p
	return !exists, nil
}

func (b *productBatch) Commit(_ context.Context) error {
	if b.done {
		return errBatchClosed
	}
	b.done = true
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.tables[b.name] = b.staged
	return nil
}

func (b *productBatch) Rollback(_ context.Context) error {
	b.done = true
	return nil
}

func (b *productBatch) check(p crawler.Product) error {
	if b.done {
		return errBatchClosed
	}
	if err, ok := b.failures[p.Reference]; ok {
		return err
	}
	return nil
}
