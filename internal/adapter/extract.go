package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// text returns the trimmed, whitespace-collapsed text of the first match.
func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.First().Text()), " ")
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}

func find(sel *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return sel.FilterFunction(func(int, *goquery.Selection) bool { return false })
	}
	return sel.Find(selector)
}

// resolve makes raw absolute against base; empty stays empty.
func resolve(base *url.URL, raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// referenceFromLink returns the last path segment of a detail link.
func referenceFromLink(link string) string {
	if link == "" {
		return ""
	}
	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSpace(path)
}

// leadingInt parses the first run of digits in s ("14 couleurs" -> 14).
func leadingInt(s string) int {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// attrList reads one value per matched element, keeping empty values so the
// result lines up with the elements on the page.
func attrList(sel *goquery.Selection, name string) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if name == "" {
			out = append(out, text(s))
			return
		}
		v, _ := s.Attr(name)
		out = append(out, strings.TrimSpace(v))
	})
	return out
}

// waitBestEffort records a timeout as an event and reports whether the condition held.
func (b base) waitBestEffort(ctx context.Context, s crawler.Session, req crawler.PageRequest, res *crawler.ExtractionResult, selector string, opts crawler.WaitOptions) bool {
	err := s.WaitFor(ctx, selector, opts)
	if err == nil {
		return true
	}
	what := "appear"
	if opts.Hidden {
		what = "disappear"
	}
	res.Events = append(res.Events, crawler.Event{
		Kind:     crawler.EventWaitTimeout,
		Category: req.Category.Name,
		URL:      res.URL,
		Page:     req.Index,
		Message:  fmt.Sprintf("%s did not %s within %s: %v", selector, what, opts.Timeout, err),
	})
	if !errors.Is(err, crawler.ErrTimeoutCondition) {
		b.logger.Warn("wait failed",
			zap.String("selector", selector),
			zap.String("url", res.URL),
			zap.Error(err),
		)
	}
	return false
}

func (b base) failed(req crawler.PageRequest, res *crawler.ExtractionResult, stage string, err error) {
	res.Events = append(res.Events, crawler.Event{
		Kind:     crawler.EventExtractionFailed,
		Category: req.Category.Name,
		URL:      res.URL,
		Page:     req.Index,
		Message:  fmt.Sprintf("%s: %v", stage, err),
	})
	b.logger.Warn("page extraction failed",
		zap.String("source", req.Source),
		zap.String("category", req.Category.Name),
		zap.String("url", res.URL),
		zap.Int("page", req.Index),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

// document snapshots the live DOM; a failure is recorded and yields nil.
func (b base) document(ctx context.Context, s crawler.Session, req crawler.PageRequest, res *crawler.ExtractionResult) *goquery.Document {
	doc, err := s.Document(ctx)
	if err != nil {
		b.failed(req, res, "snapshot", err)
		return nil
	}
	return doc
}

// collect appends one product per item match.
func (b base) collect(doc *goquery.Document, req crawler.PageRequest, res *crawler.ExtractionResult, extract func(*goquery.Selection) crawler.Product) {
	if doc == nil {
		return
	}
	doc.Find(b.layout.Item).Each(func(_ int, item *goquery.Selection) {
		res.Records = append(res.Records, extract(item))
	})
	b.logger.Debug("page extracted",
		zap.String("source", req.Source),
		zap.String("category", req.Category.Name),
		zap.Int("page", req.Index),
		zap.Int("records", len(res.Records)),
	)
}

func (b base) reference(item *goquery.Selection, link string) string {
	if b.layout.Reference == "" {
		return referenceFromLink(link)
	}
	raw := text(find(item, b.layout.Reference))
	return strings.TrimSpace(strings.TrimPrefix(raw, b.layout.ReferencePrefix))
}
