package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxPages bounds paginated categories whose listing never runs dry.
	DefaultMaxPages = 200
	// DefaultPageDelay is the politeness throttle between two pages of a category.
	DefaultPageDelay = 2 * time.Second
)

// Paginator drives an adapter page by page until the category is exhausted.
type Paginator struct {
	maxPages int
	delay    time.Duration
	throttle pageThrottle
	logger   *zap.Logger
}

// NewPaginator builds a Paginator. Non-positive maxPages falls back to DefaultMaxPages.
func NewPaginator(maxPages int, delay time.Duration, logger *zap.Logger) *Paginator {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paginator{
		maxPages: maxPages,
		delay:    delay,
		throttle: timerThrottle{},
		logger:   logger,
	}
}

// MaxPages returns the safety cap.
func (p *Paginator) MaxPages() int {
	return p.maxPages
}

// Crawl fetches pages 1..N of cat until a page comes back empty, the adapter
// is single-page, the cap is reached, or the context ends.
func (p *Paginator) Crawl(ctx context.Context, session Session, adapter Adapter, source string, cat Category) CategoryResult {
	res := CategoryResult{Category: cat}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		out := adapter.FetchPage(ctx, session, PageRequest{Source: source, Category: cat, Index: page})
		res.Pages++
		res.Events = append(res.Events, out.Events...)
		if out.Err != nil {
			res.Err = out.Err
			return res
		}
		if out.Empty() {
			p.logger.Debug("category exhausted",
				zap.String("source", source),
				zap.String("category", cat.Name),
				zap.Int("page", page),
			)
			return res
		}
		res.Records = append(res.Records, out.Records...)
		if !adapter.Paginated() {
			return res
		}
		if page >= p.maxPages {
			res.CapReached = true
			res.Events = append(res.Events, Event{
				Kind:     EventPageCapReached,
				Category: cat.Name,
				URL:      out.URL,
				Page:     page,
				Message:  fmt.Sprintf("stopped after %d pages", page),
			})
			p.logger.Warn("page cap reached",
				zap.String("source", source),
				zap.String("category", cat.Name),
				zap.Int("max_pages", p.maxPages),
			)
			return res
		}
		p.throttle.Wait(ctx, p.delay)
	}
}
