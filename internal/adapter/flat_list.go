package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// FlatList reads a category page that renders every item at once, without
// pagination or scrolling.
type FlatList struct {
	base
}

// NewFlatList builds a FlatList adapter.
func NewFlatList(layout Layout, deps Deps) (*FlatList, error) {
	b, err := newBase(layout, deps)
	if err != nil {
		return nil, fmt.Errorf("flat list: %w", err)
	}
	return &FlatList{base: b}, nil
}

// Paginated is false.
func (a *FlatList) Paginated() bool { return false }

// FetchPage waits for the item list, which is mandatory: when it never shows
// up the category is reported with ErrRequiredElement.
func (a *FlatList) FetchPage(ctx context.Context, s crawler.Session, req crawler.PageRequest) crawler.ExtractionResult {
	res := crawler.ExtractionResult{URL: req.Category.URL}
	if err := s.Navigate(ctx, res.URL); err != nil {
		a.failed(req, &res, "navigate", err)
		return res
	}
	if a.layout.Title != "" {
		a.waitBestEffort(ctx, s, req, &res, a.layout.Title, crawler.WaitOptions{Timeout: a.timing.AppearTimeout})
	}
	opts := crawler.WaitOptions{Timeout: a.timing.RequiredTimeout}
	if err := s.WaitFor(ctx, a.layout.Item, opts); err != nil {
		res.Events = append(res.Events, crawler.Event{
			Kind:     crawler.EventWaitTimeout,
			Category: req.Category.Name,
			URL:      res.URL,
			Page:     req.Index,
			Message:  fmt.Sprintf("%s did not appear within %s", a.layout.Item, opts.Timeout),
		})
		if errors.Is(err, crawler.ErrTimeoutCondition) {
			res.Err = fmt.Errorf("%s: %w", a.layout.Item, crawler.ErrRequiredElement)
		} else {
			res.Err = fmt.Errorf("%s: %w: %w", a.layout.Item, crawler.ErrRequiredElement, err)
		}
		return res
	}

	doc := a.document(ctx, s, req, &res)
	if doc == nil {
		return res
	}
	label := a.normalizer.Normalize(req.Category.Name)
	if req.Category.Name == "" {
		label = a.normalizer.Normalize(text(find(doc.Selection, a.layout.Title)))
	}
	a.collect(doc, req, &res, func(item *goquery.Selection) crawler.Product {
		link := resolve(a.baseURL, attr(find(item, a.layout.Link), "href"))
		return crawler.Product{
			Reference:  a.reference(item, link),
			Name:       text(find(item, a.layout.Name)),
			Link:       link,
			Image:      resolve(a.baseURL, attr(find(item, a.layout.Image), "src")),
			Brand:      text(find(item, a.layout.Brand)),
			Category:   label,
			ColorCount: leadingInt(text(find(item, a.layout.ColorCount))),
		}
	})
	return res
}
