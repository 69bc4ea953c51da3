package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// Search paging bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// SearchSource is one table taking part in a search.
type SearchSource struct {
	Name   string
	Schema crawler.Schema
	// Brands restricts the source to these brands when non-empty.
	Brands []string
}

// SearchQuery filters the union of the requested sources.
type SearchQuery struct {
	// Text matches names case-insensitively as a substring.
	Text    string
	Sources []SearchSource
	// Colors keeps rows carrying at least one of these colors. Sources that
	// only store a color count cannot match and are left out.
	Colors   []string
	Page     int
	PageSize int
}

// SearchRow is one matching product tagged with its source.
type SearchRow struct {
	Source string
	crawler.Product
}

// SearchResult is one page of matches.
type SearchResult struct {
	Rows     []SearchRow
	Total    int64
	Page     int
	PageSize int
}

// Search runs q across its sources ordered by name.
func (s *ProductStore) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	if s == nil || s.pool == nil {
		return SearchResult{}, fmt.Errorf("product store is not configured")
	}
	q = q.withDefaults()
	res := SearchResult{Page: q.Page, PageSize: q.PageSize}

	query, args, err := buildSearch(q)
	if err != nil {
		return SearchResult{}, err
	}
	if query == "" {
		return res, nil
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SearchRow
		if err := rows.Scan(
			&row.Source,
			&row.Reference,
			&row.Name,
			&row.Link,
			&row.Image,
			&row.Brand,
			&row.Category,
			&row.Price,
			&row.ColorCount,
			&row.Colors,
			&res.Total,
		); err != nil {
			return SearchResult{}, fmt.Errorf("scan product: %w", err)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, fmt.Errorf("iterate products: %w", err)
	}
	return res, nil
}

func (q SearchQuery) withDefaults() SearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	q.Text = strings.TrimSpace(q.Text)
	return q
}

type argList []any

func (a *argList) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// buildSearch returns an empty query when no source can match.
func buildSearch(q SearchQuery) (string, []any, error) {
	var args argList
	var selects []string
	for _, src := range q.Sources {
		if !validTableName.MatchString(src.Schema.Table) {
			return "", nil, fmt.Errorf("invalid table name %q", src.Schema.Table)
		}
		if len(src.Brands) > 0 && !src.Schema.Has(crawler.ColumnBrand) {
			return "", nil, fmt.Errorf("source %s has no brand column", src.Name)
		}
		if len(q.Colors) > 0 && !src.Schema.Has(crawler.ColumnColors) {
			continue
		}
		if q.Text != "" && !src.Schema.Has(crawler.ColumnName) {
			continue
		}

		var where []string
		if q.Text != "" {
			where = append(where, fmt.Sprintf(`name ILIKE %s ESCAPE '\'`, args.add("%"+escapeLike(q.Text)+"%")))
		}
		if len(src.Brands) > 0 {
			where = append(where, fmt.Sprintf("brand = ANY(%s::text[])", args.add(src.Brands)))
		}
		if len(q.Colors) > 0 {
			where = append(where, fmt.Sprintf("colors && %s::text[]", args.add(q.Colors)))
		}

		stmt := fmt.Sprintf("SELECT %s::text AS source, %s FROM %s",
			args.add(src.Name), projection(src.Schema), src.Schema.Table)
		if len(where) > 0 {
			stmt += " WHERE " + strings.Join(where, " AND ")
		}
		selects = append(selects, stmt)
	}
	if len(selects) == 0 {
		return "", nil, nil
	}

	limit := args.add(q.PageSize)
	offset := args.add((q.Page - 1) * q.PageSize)
	query := fmt.Sprintf(`SELECT source, reference, name, link, image, brand, category, price, color_count, colors, count(*) OVER() AS total
FROM (%s) AS matches
ORDER BY name, source, reference
LIMIT %s OFFSET %s`, strings.Join(selects, "\nUNION ALL\n"), limit, offset)
	return query, args, nil
}

// projection selects every searchable column, filling the ones a schema lacks.
func projection(schema crawler.Schema) string {
	cols := []struct {
		col      crawler.Column
		fallback string
	}{
		{crawler.ColumnReference, "''"},
		{crawler.ColumnName, "''"},
		{crawler.ColumnLink, "''"},
		{crawler.ColumnImage, "''"},
		{crawler.ColumnBrand, "''"},
		{crawler.ColumnCategory, "''"},
		{crawler.ColumnPrice, "''"},
		{crawler.ColumnColorCount, "0"},
		{crawler.ColumnColors, "'{}'::text[]"},
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if schema.Has(c.col) {
			out[i] = string(c.col)
			continue
		}
		out[i] = fmt.Sprintf("%s AS %s", c.fallback, c.col)
	}
	return strings.Join(out, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
