package crawler

import (
	"fmt"
	"strings"
)

// Column names a persisted product attribute.
type Column string

// Columns a source table may carry. Reference is always the natural key.
const (
	ColumnReference  Column = "reference"
	ColumnName       Column = "name"
	ColumnLink       Column = "link"
	ColumnImage      Column = "image"
	ColumnBrand      Column = "brand"
	ColumnCategory   Column = "category"
	ColumnPrice      Column = "price"
	ColumnColorCount Column = "color_count"
	ColumnColors     Column = "colors"
)

// Schema describes the destination table of one source.
type Schema struct {
	Table   string
	Columns []Column
}

// Has reports whether the schema persists col.
func (s Schema) Has(col Column) bool {
	for _, c := range s.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// ValueColumns returns every column except the natural key, in schema order.
func (s Schema) ValueColumns() []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c != ColumnReference {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks the schema is usable for ingestion.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Table) == "" {
		return fmt.Errorf("schema table is required")
	}
	if len(s.Columns) == 0 || s.Columns[0] != ColumnReference {
		return fmt.Errorf("schema %s: first column must be %s", s.Table, ColumnReference)
	}
	seen := make(map[Column]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("schema %s: duplicate column %s", s.Table, c)
		}
		if !knownColumn(c) {
			return fmt.Errorf("schema %s: unknown column %q", s.Table, c)
		}
		seen[c] = struct{}{}
	}
	if s.Has(ColumnColorCount) && s.Has(ColumnColors) {
		return fmt.Errorf("schema %s: %s and %s are mutually exclusive", s.Table, ColumnColorCount, ColumnColors)
	}
	return nil
}

// Project drops the attributes the schema does not persist.
func (s Schema) Project(p Product) Product {
	out := Product{Reference: p.Reference}
	for _, c := range s.ValueColumns() {
		switch c {
		case ColumnName:
			out.Name = p.Name
		case ColumnLink:
			out.Link = p.Link
		case ColumnImage:
			out.Image = p.Image
		case ColumnBrand:
			out.Brand = p.Brand
		case ColumnCategory:
			out.Category = p.Category
		case ColumnPrice:
			out.Price = p.Price
		case ColumnColorCount:
			out.ColorCount = p.ColorCount
		case ColumnColors:
			out.Colors = append([]string(nil), p.Colors...)
		}
	}
	return out
}

// Value returns the column value of p in the shape the database expects.
func (p Product) Value(col Column) any {
	switch col {
	case ColumnReference:
		return p.Reference
	case ColumnName:
		return p.Name
	case ColumnLink:
		return p.Link
	case ColumnImage:
		return p.Image
	case ColumnBrand:
		return p.Brand
	case ColumnCategory:
		return p.Category
	case ColumnPrice:
		return p.Price
	case ColumnColorCount:
		return p.ColorCount
	case ColumnColors:
		if p.Colors == nil {
			return []string{}
		}
		return p.Colors
	default:
		return nil
	}
}

func knownColumn(c Column) bool {
	switch c {
	case ColumnReference, ColumnName, ColumnLink, ColumnImage, ColumnBrand,
		ColumnCategory, ColumnPrice, ColumnColorCount, ColumnColors:
		return true
	default:
		return false
	}
}

// Strategy selects how a batch replaces destination state.
type Strategy string

// Supported load strategies.
const (
	// StrategyReplace truncates the destination and inserts, skipping duplicate references.
	StrategyReplace Strategy = "replace"
	// StrategyUpsert inserts new references and overwrites existing ones.
	StrategyUpsert Strategy = "upsert"
)

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyReplace, "full_replace", "":
		return StrategyReplace, nil
	case StrategyUpsert, "merge_upsert", "merge":
		return StrategyUpsert, nil
	default:
		return "", fmt.Errorf("unknown load strategy %q", raw)
	}
}

// Destination binds a schema to the strategy used to load it.
type Destination struct {
	Schema   Schema
	Strategy Strategy
}
