// Package adapter implements the catalog layouts the crawler knows how to read:
// an infinite-scroll listing, a paginated product grid, and a flat category list.
package adapter

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/category"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// Kind names one of the supported catalog layouts.
type Kind string

// Supported layouts.
const (
	KindInfiniteScroll Kind = "infinite_scroll"
	KindPaginatedGrid  Kind = "paginated_grid"
	KindFlatList       Kind = "flat_list"
)

// ParseKind validates a configured layout name.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindInfiniteScroll, KindPaginatedGrid, KindFlatList:
		return k, nil
	default:
		return "", fmt.Errorf("unknown adapter kind %q", raw)
	}
}

// Layout holds the selectors of one catalog. Item-level selectors are
// evaluated relative to each Item match.
type Layout struct {
	// BaseURL resolves relative links and image sources.
	BaseURL string

	Item            string
	Reference       string
	ReferencePrefix string
	Name            string
	// NameSeparator splits "Brand - Name" style labels; the part after it is the name.
	NameSeparator string
	Link          string
	Image         string
	Brand         string
	Price         string
	// Colors selects swatches whose ColorsAttr value is the color label.
	Colors     string
	ColorsAttr string
	ColorCount string

	// Title labels items when the category has no native key.
	Title string
	// Loading is a spinner that must come and go before the listing is complete.
	Loading string

	PageParam     string
	PageSizeParam string
	PageSize      int
}

// Timing carries the viewport and the wait budgets applied by the adapters.
type Timing struct {
	ViewportWidth    int
	ViewportHeight   int
	AppearTimeout    time.Duration
	DisappearTimeout time.Duration
	RequiredTimeout  time.Duration
}

// DefaultTiming mirrors a desktop browser and the waits the catalogs need.
func DefaultTiming() Timing {
	return Timing{
		ViewportWidth:    1280,
		ViewportHeight:   800,
		AppearTimeout:    5 * time.Second,
		DisappearTimeout: 15 * time.Second,
		RequiredTimeout:  5 * time.Second,
	}
}

// Deps are the shared collaborators of every adapter.
type Deps struct {
	Normalizer *category.Normalizer
	// Capturer is optional.
	Capturer crawler.Capturer
	Timing   Timing
	Logger   *zap.Logger
}

// New builds the adapter for kind. The set of kinds is closed.
func New(kind Kind, layout Layout, deps Deps) (crawler.Adapter, error) {
	switch kind {
	case KindInfiniteScroll:
		return NewInfiniteScroll(layout, deps)
	case KindPaginatedGrid:
		return NewPaginatedGrid(layout, deps)
	case KindFlatList:
		return NewFlatList(layout, deps)
	default:
		return nil, fmt.Errorf("unknown adapter kind %q", kind)
	}
}

type base struct {
	layout     Layout
	baseURL    *url.URL
	normalizer *category.Normalizer
	capturer   crawler.Capturer
	timing     Timing
	logger     *zap.Logger
}

func newBase(layout Layout, deps Deps) (base, error) {
	if strings.TrimSpace(layout.Item) == "" {
		return base{}, fmt.Errorf("layout item selector is required")
	}
	b := base{
		layout:     layout,
		normalizer: deps.Normalizer,
		capturer:   deps.Capturer,
		timing:     deps.Timing,
		logger:     deps.Logger,
	}
	if b.normalizer == nil {
		b.normalizer = category.New()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	defaults := DefaultTiming()
	if b.timing.ViewportWidth <= 0 || b.timing.ViewportHeight <= 0 {
		b.timing.ViewportWidth, b.timing.ViewportHeight = defaults.ViewportWidth, defaults.ViewportHeight
	}
	if b.timing.AppearTimeout <= 0 {
		b.timing.AppearTimeout = defaults.AppearTimeout
	}
	if b.timing.DisappearTimeout <= 0 {
		b.timing.DisappearTimeout = defaults.DisappearTimeout
	}
	if b.timing.RequiredTimeout <= 0 {
		b.timing.RequiredTimeout = defaults.RequiredTimeout
	}
	if layout.BaseURL != "" {
		u, err := url.Parse(layout.BaseURL)
		if err != nil {
			return base{}, fmt.Errorf("parse base url: %w", err)
		}
		b.baseURL = u
	}
	return b, nil
}
