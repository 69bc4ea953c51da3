package adapter

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// InfiniteScroll reads a listing that renders every item on one URL as the
// page is scrolled.
type InfiniteScroll struct {
	base
}

// NewInfiniteScroll builds an InfiniteScroll adapter.
func NewInfiniteScroll(layout Layout, deps Deps) (*InfiniteScroll, error) {
	b, err := newBase(layout, deps)
	if err != nil {
		return nil, fmt.Errorf("infinite scroll: %w", err)
	}
	return &InfiniteScroll{base: b}, nil
}

// Paginated is false: one URL holds the whole listing.
func (a *InfiniteScroll) Paginated() bool { return false }

// FetchPage loads the category URL, waits out the loader, scrolls to the end,
// and extracts every item.
func (a *InfiniteScroll) FetchPage(ctx context.Context, s crawler.Session, req crawler.PageRequest) crawler.ExtractionResult {
	res := crawler.ExtractionResult{URL: req.Category.URL}

	if err := s.SetViewport(ctx, a.timing.ViewportWidth, a.timing.ViewportHeight); err != nil {
		a.logger.Warn("set viewport", zap.String("url", res.URL), zap.Error(err))
	}
	if err := s.Navigate(ctx, res.URL); err != nil {
		a.failed(req, &res, "navigate", err)
		return res
	}
	if a.layout.Loading != "" {
		appeared := a.waitBestEffort(ctx, s, req, &res, a.layout.Loading, crawler.WaitOptions{Timeout: a.timing.AppearTimeout})
		if appeared {
			a.waitBestEffort(ctx, s, req, &res, a.layout.Loading, crawler.WaitOptions{Hidden: true, Timeout: a.timing.DisappearTimeout})
		}
	}
	a.waitBestEffort(ctx, s, req, &res, a.layout.Item, crawler.WaitOptions{Timeout: a.timing.AppearTimeout})

	if err := s.ScrollToBottom(ctx); err != nil {
		a.logger.Warn("scroll to bottom", zap.String("url", res.URL), zap.Error(err))
	}
	if a.capturer != nil {
		a.capturer.Capture(ctx, s, req.Source, res.URL)
	}

	label := a.normalizer.Normalize(req.Category.Name)
	a.collect(a.document(ctx, s, req, &res), req, &res, func(item *goquery.Selection) crawler.Product {
		link := resolve(a.baseURL, attr(find(item, a.layout.Link), "href"))
		return crawler.Product{
			Reference: a.reference(item, link),
			Name:      text(find(item, a.layout.Name)),
			Link:      link,
			Image:     resolve(a.baseURL, attr(find(item, a.layout.Image), "src")),
			Brand:     text(find(item, a.layout.Brand)),
			Category:  label,
			Colors:    attrList(find(item, a.layout.Colors), a.layout.ColorsAttr),
		}
	})
	return res
}
