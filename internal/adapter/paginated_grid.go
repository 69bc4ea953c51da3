package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

const (
	defaultPageParam     = "page"
	defaultPageSizeParam = "limit"
	defaultPageSize      = 24
)

// PaginatedGrid reads a product grid addressed by page index and page size
// query parameters.
type PaginatedGrid struct {
	base
}

// NewPaginatedGrid builds a PaginatedGrid adapter.
func NewPaginatedGrid(layout Layout, deps Deps) (*PaginatedGrid, error) {
	if layout.PageParam == "" {
		layout.PageParam = defaultPageParam
	}
	if layout.PageSizeParam == "" {
		layout.PageSizeParam = defaultPageSizeParam
	}
	if layout.PageSize <= 0 {
		layout.PageSize = defaultPageSize
	}
	b, err := newBase(layout, deps)
	if err != nil {
		return nil, fmt.Errorf("paginated grid: %w", err)
	}
	return &PaginatedGrid{base: b}, nil
}

// Paginated is true.
func (a *PaginatedGrid) Paginated() bool { return true }

// PageURL composes the listing URL for a 1-based page index.
func (a *PaginatedGrid) PageURL(categoryURL string, page int) (string, error) {
	u, err := url.Parse(categoryURL)
	if err != nil {
		return "", fmt.Errorf("parse category url: %w", err)
	}
	q := u.Query()
	q.Set(a.layout.PageParam, strconv.Itoa(page))
	q.Set(a.layout.PageSizeParam, strconv.Itoa(a.layout.PageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage navigates to one grid page and extracts its items. A page with no
// items means the category is exhausted.
func (a *PaginatedGrid) FetchPage(ctx context.Context, s crawler.Session, req crawler.PageRequest) crawler.ExtractionResult {
	res := crawler.ExtractionResult{URL: req.Category.URL}
	pageURL, err := a.PageURL(req.Category.URL, req.Index)
	if err != nil {
		a.failed(req, &res, "page url", err)
		return res
	}
	res.URL = pageURL
	if err := s.Navigate(ctx, pageURL); err != nil {
		a.failed(req, &res, "navigate", err)
		return res
	}

	label := a.normalizer.Normalize(req.Category.Name)
	pageBase := a.baseURL
	if pageBase == nil {
		pageBase, _ = url.Parse(pageURL)
	}
	a.collect(a.document(ctx, s, req, &res), req, &res, func(item *goquery.Selection) crawler.Product {
		link := resolve(pageBase, attr(find(item, a.layout.Link), "href"))
		return crawler.Product{
			Reference:  a.reference(item, link),
			Name:       a.name(text(find(item, a.layout.Name))),
			Link:       link,
			Image:      resolve(pageBase, attr(find(item, a.layout.Image), "src")),
			Brand:      text(find(item, a.layout.Brand)),
			Category:   label,
			Price:      text(find(item, a.layout.Price)),
			ColorCount: leadingInt(text(find(item, a.layout.ColorCount))),
		}
	})
	return res
}

// name keeps the segment between the first and second separator of
// "Brand - Name - Variant" labels.
func (a *PaginatedGrid) name(label string) string {
	if a.layout.NameSeparator == "" {
		return label
	}
	parts := strings.Split(label, a.layout.NameSeparator)
	if len(parts) < 2 {
		return label
	}
	return strings.TrimSpace(parts[1])
}
