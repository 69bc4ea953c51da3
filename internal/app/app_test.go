package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/catalog-crawler/internal/app"
	"github.com/JakeFAU/catalog-crawler/internal/config"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/metrics"
	pubmemory "github.com/JakeFAU/catalog-crawler/internal/publisher/memory"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

const payperPage = `<html><body>
<div class="catalogo-title"><h1>Polos</h1></div>
<div class="catalogoItem">
  <a href="/it-fr/p/PA100"><span class="catalogoItemLabel">Polo Piqué</span></a>
  <div class="catalogoItemImg"><img src="/img/PA100.jpg"></div>
  <div class="catalogoItemColors"><span class="label-danger">14 couleurs</span></div>
</div>
<div class="catalogoItem">
  <a href="/it-fr/p/PA200"><span class="catalogoItemLabel">Polo Stretch</span></a>
</div>
</body></html>`

// MockSessions mocks crawler.SessionFactory.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Open(ctx context.Context) (crawler.Session, error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(crawler.Session)
	return session, args.Error(1)
}

// staticSession serves the same document for every page.
type staticSession struct {
	html   string
	closed bool
}

func (s *staticSession) SetViewport(context.Context, int, int) error { return nil }
func (s *staticSession) Navigate(context.Context, string) error      { return nil }
func (s *staticSession) WaitFor(context.Context, string, crawler.WaitOptions) error {
	return nil
}
func (s *staticSession) Evaluate(context.Context, string, any) error { return nil }
func (s *staticSession) ScrollToBottom(context.Context) error        { return nil }
func (s *staticSession) Document(context.Context) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s.html))
}
func (s *staticSession) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (s *staticSession) Close() error {
	s.closed = true
	return nil
}

func dryRunConfig() config.Config {
	return config.Config{
		Logging: config.LoggingConfig{Level: "info"},
		Browser: config.BrowserConfig{NavigationTimeout: time.Minute, WaitPolicy: "load"},
		Crawl: config.CrawlConfig{
			Sources:  []string{"payper"},
			MaxPages: 5,
			Categories: map[string][]crawler.Category{
				"payper": {{Name: "polo", URL: "https://www.payperwear.com/cat/it-fr/casual-workwear/polo-t-shirt/polo"}},
			},
		},
		Ingest:  config.IngestConfig{DefaultStrategy: "replace"},
		PubSub:  config.PubSubConfig{ProjectID: "catalog", Topic: "catalog-runs"},
		Capture: config.CaptureConfig{Enabled: true, Backend: config.CaptureMemory, Prefix: "captures"},
	}
}

func TestDryRunLoadsIntoMemoryAndPublishes(t *testing.T) {
	t.Parallel()

	session := &staticSession{html: payperPage}
	sessions := new(MockSessions)
	sessions.On("Open", mock.Anything).Return(session, nil).Once()
	pub := pubmemory.New()
	rec := metrics.New()

	a, err := app.New(context.Background(), dryRunConfig(), zaptest.NewLogger(t), app.Options{
		DryRun:    true,
		Sessions:  sessions,
		Publisher: pub,
		Metrics:   rec,
	})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Products())

	report, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.Len(t, report.Sources, 1)
	assert.Equal(t, crawler.StatusSucceeded, report.Sources[0].Status)
	assert.Equal(t, crawler.LoadResult{Inserted: 2}, report.Sources[0].Load)
	assert.True(t, session.closed)

	rows := a.DryRunRows("products_payper")
	require.Len(t, rows, 2)
	assert.Equal(t, "PA100", rows[0].Reference)
	assert.Equal(t, 14, rows[0].ColorCount)
	assert.Equal(t, "https://www.payperwear.com/img/PA100.jpg", rows[0].Image)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "catalog-runs", msgs[0].Topic)
	assert.Equal(t, map[string]string{"run_id": report.RunID, "status": "succeeded"}, msgs[0].Attributes)

	count, err := testutil.GatherAndCount(rec.Registry, "catalog_records_extracted")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	sessions.AssertExpectations(t)
}

func TestRunReportsSessionFailure(t *testing.T) {
	t.Parallel()

	sessions := new(MockSessions)
	sessions.On("Open", mock.Anything).Return(nil, errors.New("chrome not found"))
	cfg := dryRunConfig()
	cfg.PubSub = config.PubSubConfig{}

	a, err := app.New(context.Background(), cfg, nil, app.Options{DryRun: true, Sessions: sessions})
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Run(context.Background(), []string{"payper"})
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, crawler.StatusFailed, report.Sources[0].Status)
	assert.Equal(t, 1, report.EventCounts()[crawler.EventSessionFailed])
	assert.Empty(t, a.DryRunRows("products_payper"))
}

func TestRunRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), dryRunConfig(), nil, app.Options{DryRun: true, Sessions: new(MockSessions)})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Run(context.Background(), []string{"amazon"})
	require.ErrorContains(t, err, "unknown source")
}

func TestNewRequiresDSNOutsideDryRun(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), dryRunConfig(), nil, app.Options{Sessions: new(MockSessions)})
	require.ErrorContains(t, err, "db.dsn is required")
}

func TestSearchUnavailableOnDryRun(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), dryRunConfig(), nil, app.Options{DryRun: true, Sessions: new(MockSessions)})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Search(context.Background(), postgres.SearchQuery{Text: "polo"})
	require.ErrorContains(t, err, "dry run")
}
