package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

type waitCall struct {
	selector string
	opts     crawler.WaitOptions
}

// htmlSession serves a fixed document per URL and scripted wait outcomes.
type htmlSession struct {
	pages       map[string]string
	waitErrs    map[string]error
	navigateErr error

	navigated []string
	waits     []waitCall
	scrolled  int
	viewport  [2]int
}

func (s *htmlSession) SetViewport(_ context.Context, w, h int) error {
	s.viewport = [2]int{w, h}
	return nil
}

func (s *htmlSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return s.navigateErr
}

func (s *htmlSession) WaitFor(_ context.Context, selector string, opts crawler.WaitOptions) error {
	s.waits = append(s.waits, waitCall{selector: selector, opts: opts})
	return s.waitErrs[selector]
}

func (s *htmlSession) Evaluate(context.Context, string, any) error { return nil }

func (s *htmlSession) ScrollToBottom(context.Context) error {
	s.scrolled++
	return nil
}

func (s *htmlSession) Document(context.Context) (*goquery.Document, error) {
	if len(s.navigated) == 0 {
		return nil, errors.New("no page loaded")
	}
	html, ok := s.pages[s.navigated[len(s.navigated)-1]]
	if !ok {
		html = "<html><body></body></html>"
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *htmlSession) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (s *htmlSession) Close() error { return nil }

type recordingCapturer struct {
	pages []string
}

func (c *recordingCapturer) Capture(_ context.Context, _ crawler.Session, source, pageURL string) {
	c.pages = append(c.pages, source+"|"+pageURL)
}
