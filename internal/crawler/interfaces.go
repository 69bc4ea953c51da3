package crawler

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WaitOptions tunes Session.WaitFor.
type WaitOptions struct {
	// Hidden waits for the selector to disappear instead of appear.
	Hidden  bool
	Timeout time.Duration
}

// Session is one navigable browser page owned by a single source crawl.
type Session interface {
	SetViewport(ctx context.Context, width, height int) error
	Navigate(ctx context.Context, url string) error
	// WaitFor returns ErrTimeoutCondition when the condition does not hold in time.
	WaitFor(ctx context.Context, selector string, opts WaitOptions) error
	Evaluate(ctx context.Context, expression string, out any) error
	ScrollToBottom(ctx context.Context) error
	Document(ctx context.Context) (*goquery.Document, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// SessionFactory acquires a fresh browser session.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// Adapter extracts products from one catalog layout.
type Adapter interface {
	// Paginated reports whether the paginator may request pages beyond the first.
	Paginated() bool
	FetchPage(ctx context.Context, session Session, req PageRequest) ExtractionResult
}

// Loader persists a batch into a source destination.
type Loader interface {
	Load(ctx context.Context, dest Destination, records []Product) (LoadResult, error)
}

// Capturer stores a diagnostic screenshot of the current page. It never fails the caller.
type Capturer interface {
	Capture(ctx context.Context, session Session, source, pageURL string)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run reports to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
