package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/mock"
)

type stubSession struct {
	mu     sync.Mutex
	closed bool
}

func (s *stubSession) SetViewport(context.Context, int, int) error        { return nil }
func (s *stubSession) Navigate(context.Context, string) error             { return nil }
func (s *stubSession) WaitFor(context.Context, string, WaitOptions) error { return nil }
func (s *stubSession) Evaluate(context.Context, string, any) error        { return nil }
func (s *stubSession) ScrollToBottom(context.Context) error               { return nil }
func (s *stubSession) Document(context.Context) (*goquery.Document, error) {
	return nil, fmt.Errorf("no document")
}
func (s *stubSession) Screenshot(context.Context) ([]byte, error) { return nil, nil }

func (s *stubSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubFactory struct {
	sessions []*stubSession
	err      error
}

func (f *stubFactory) Open(context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &stubSession{}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// scriptedAdapter serves page results per category in order; pages past the
// script come back empty.
type scriptedAdapter struct {
	paginated bool
	pages     map[string][]ExtractionResult
	calls     []PageRequest
	onFetch   func(PageRequest)
}

func (a *scriptedAdapter) Paginated() bool { return a.paginated }

func (a *scriptedAdapter) FetchPage(_ context.Context, _ Session, req PageRequest) ExtractionResult {
	a.calls = append(a.calls, req)
	if a.onFetch != nil {
		a.onFetch(req)
	}
	script := a.pages[req.Category.Name]
	if req.Index-1 < len(script) {
		return script[req.Index-1]
	}
	return ExtractionResult{}
}

// endlessAdapter never runs dry.
type endlessAdapter struct {
	calls int
}

func (a *endlessAdapter) Paginated() bool { return true }

func (a *endlessAdapter) FetchPage(_ context.Context, _ Session, req PageRequest) ExtractionResult {
	a.calls++
	return ExtractionResult{Records: products(req.Category.Name, req.Index, 3)}
}

type recordingThrottle struct {
	delays []time.Duration
}

func (p *recordingThrottle) Wait(_ context.Context, d time.Duration) {
	p.delays = append(p.delays, d)
}

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, dest Destination, records []Product) (LoadResult, error) {
	args := m.Called(ctx, dest, records)
	return args.Get(0).(LoadResult), args.Error(1)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type staticIDs struct {
	id  string
	err error
}

func (s staticIDs) NewID() (string, error) { return s.id, s.err }

func products(prefix string, page, n int) []Product {
	out := make([]Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Product{
			Reference: fmt.Sprintf("%s-%d-%d", prefix, page, i),
			Name:      fmt.Sprintf("Item %d", i),
		})
	}
	return out
}

func testPaginator(maxPages int) (*Paginator, *recordingThrottle) {
	p := NewPaginator(maxPages, 2*time.Second, nil)
	throttle := &recordingThrottle{}
	p.throttle = throttle
	return p, throttle
}
