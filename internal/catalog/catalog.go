// Package catalog defines the built-in sources: their layouts, listing
// entry points, and destination tables.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JakeFAU/catalog-crawler/internal/adapter"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// Built-in source names.
const (
	Makito = "makito"
	TopTex = "toptex"
	Payper = "payper"
)

// Definition is the static description of one source.
type Definition struct {
	Name       string
	Kind       adapter.Kind
	Layout     adapter.Layout
	Schema     crawler.Schema
	Categories []crawler.Category
}

// Definitions returns the built-in sources in run order.
func Definitions() []Definition {
	return []Definition{makito(), toptex(), payper()}
}

// Names returns the built-in source names in run order.
func Names() []string {
	defs := Definitions()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the definition named name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Options select and tune the sources Build returns.
type Options struct {
	// Sources restricts the run to these names, in run order. Empty means all.
	Sources []string
	// DefaultStrategy applies to sources without an entry in Strategies.
	DefaultStrategy crawler.Strategy
	Strategies      map[string]crawler.Strategy
	// Categories replaces the built-in category list of a source.
	Categories map[string][]crawler.Category
}

// Build wires the selected sources with adapters built from deps.
func Build(opts Options, deps adapter.Deps) ([]crawler.Source, error) {
	selected, err := Select(opts.Sources)
	if err != nil {
		return nil, err
	}
	for name := range opts.Strategies {
		if _, ok := Lookup(name); !ok {
			return nil, fmt.Errorf("strategy configured for unknown source %q", name)
		}
	}
	for name := range opts.Categories {
		if _, ok := Lookup(name); !ok {
			return nil, fmt.Errorf("categories configured for unknown source %q", name)
		}
	}

	sources := make([]crawler.Source, 0, len(selected))
	for _, def := range selected {
		a, err := adapter.New(def.Kind, def.Layout, deps)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", def.Name, err)
		}
		strategy := opts.DefaultStrategy
		if s, ok := opts.Strategies[def.Name]; ok {
			strategy = s
		}
		if strategy == "" {
			strategy = crawler.StrategyReplace
		}
		categories := def.Categories
		if override, ok := opts.Categories[def.Name]; ok {
			categories = override
		}
		if len(categories) == 0 {
			return nil, fmt.Errorf("source %s has no categories", def.Name)
		}
		sources = append(sources, crawler.Source{
			Name:        def.Name,
			Adapter:     a,
			Categories:  append([]crawler.Category(nil), categories...),
			Destination: crawler.Destination{Schema: def.Schema, Strategy: strategy},
		})
	}
	return sources, nil
}

// Select returns the named definitions in run order; empty names select all.
func Select(names []string) ([]Definition, error) {
	defs := Definitions()
	if len(names) == 0 {
		return defs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if _, ok := Lookup(n); !ok {
			known := Names()
			sort.Strings(known)
			return nil, fmt.Errorf("unknown source %q (known: %s)", n, strings.Join(known, ", "))
		}
		want[n] = true
	}
	out := make([]Definition, 0, len(want))
	for _, d := range defs {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out, nil
}
