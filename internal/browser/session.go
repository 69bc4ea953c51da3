package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

var errSessionClosed = errors.New("browser session closed")

// Session is a crawler.Session bound to one Chrome tab.
type Session struct {
	cfg    Config
	logger *zap.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ crawler.Session = (*Session)(nil)

// SetViewport resizes the emulated window.
func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	if err := s.run(ctx, s.cfg.OperationTimeout, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Navigate loads rawURL and blocks until the configured readiness policy holds.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if s.isClosed() {
		return fmt.Errorf("navigate %s: %w", rawURL, errSessionClosed)
	}
	actions := []chromedp.Action{chromedp.Navigate(rawURL)}
	if s.cfg.WaitPolicy == WaitNetworkIdle {
		watcher := newIdleWatcher()
		listenCtx, stopListening := context.WithCancel(s.tabCtx)
		defer stopListening()
		chromedp.ListenTarget(listenCtx, watcher.handle)
		actions = []chromedp.Action{watcher.track(), chromedp.Navigate(rawURL), watcher.wait()}
	}
	if err := s.run(ctx, s.cfg.NavigationTimeout, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

// WaitFor polls the page until selector is present (or gone, with opts.Hidden).
func (s *Session) WaitFor(ctx context.Context, selector string, opts crawler.WaitOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.OperationTimeout
	}
	expr, err := presenceExpression(selector, opts.Hidden)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var ok bool
		evalErr := s.run(waitCtx, timeout, chromedp.Evaluate(expr, &ok))
		if evalErr == nil && ok {
			return nil
		}
		if errors.Is(evalErr, errSessionClosed) {
			return evalErr
		}
		if evalErr != nil && waitCtx.Err() == nil {
			// The execution context is replaced while a page is still loading.
			s.logger.Debug("wait poll failed", zap.String("selector", selector), zap.Error(evalErr))
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%s: %w", selector, crawler.ErrTimeoutCondition)
		case <-ticker.C:
		}
	}
}

// Evaluate runs expression in the page and decodes the result into out.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.run(ctx, s.cfg.OperationTimeout, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// ScrollToBottom scrolls in fixed steps until the scrolled distance reaches
// the document height, then waits for late content to settle.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	expr := scrollExpression(s.cfg.ScrollStep)
	plan := scrollPlan{step: s.cfg.ScrollStep, interval: s.cfg.ScrollInterval, maxSteps: s.cfg.MaxScrollSteps}
	steps, err := scrollUntilEnd(ctx, plan, func(ctx context.Context) (int64, error) {
		var height int64
		err := s.Evaluate(ctx, expr, &height)
		return height, err
	}, pause)
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	if steps >= plan.maxSteps {
		s.logger.Warn("scroll step cap reached", zap.Int("steps", steps))
	}
	pause(ctx, s.cfg.SettleDelay)
	return ctx.Err()
}

// Document snapshots the rendered DOM.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := s.run(ctx, s.cfg.OperationTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("outer html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.OperationTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// run executes actions on the tab under timeout, aborting early when ctx ends.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.isClosed() {
		return errSessionClosed
	}
	taskCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// presenceExpression builds a predicate that is true once selector matches an
// element, or, when hidden, once no matching element is displayed.
func presenceExpression(selector string, hidden bool) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", fmt.Errorf("quote selector: %w", err)
	}
	if !hidden {
		return fmt.Sprintf(`document.querySelector(%s) !== null`, quoted), nil
	}
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (el === null) return true;
	const style = window.getComputedStyle(el);
	if (style.display === "none" || style.visibility === "hidden") return true;
	const rect = el.getBoundingClientRect();
	return rect.width === 0 && rect.height === 0;
})()`, quoted), nil
}

func scrollExpression(step int) string {
	return fmt.Sprintf(`(() => {
	window.scrollBy(0, %d);
	return document.body ? document.body.scrollHeight : 0;
})()`, step)
}

// idleWatcher resolves once the main frame of the navigated document reports
// networkAlmostIdle. Lifecycle events from child frames are ignored.
type idleWatcher struct {
	mu      sync.Mutex
	frame   cdp.FrameID
	started bool
	once    sync.Once
	done    chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{done: make(chan struct{})}
}

func (w *idleWatcher) handle(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == "" || e.FrameID != w.frame {
		return
	}
	switch e.Name {
	case "init":
		w.started = true
	case "networkAlmostIdle":
		if w.started {
			w.once.Do(func() { close(w.done) })
		}
	}
}

func (w *idleWatcher) setFrame(id cdp.FrameID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame = id
}

// track records the tab's main frame so handle can filter on it.
func (w *idleWatcher) track() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("frame tree: %w", err)
		}
		if tree == nil || tree.Frame == nil {
			return errors.New("frame tree: no main frame")
		}
		w.setFrame(tree.Frame.ID)
		return nil
	})
}

func (w *idleWatcher) wait() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		select {
		case <-w.done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("network idle: %w", ctx.Err())
		}
	})
}
