package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

func sampleReport(failed bool) crawler.RunReport {
	start := time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC)
	payper := crawler.SourceReport{
		Source:  "payper",
		Status:  crawler.StatusSucceeded,
		Records: 80,
		Pages:   29,
		Load:    crawler.LoadResult{Inserted: 78, SkippedDuplicate: 2},
		Events: []crawler.Event{
			{Kind: crawler.EventWaitTimeout},
			{Kind: crawler.EventWaitTimeout},
			{Kind: crawler.EventCategorySkipped},
		},
	}
	if failed {
		payper.Status = crawler.StatusFailed
	}
	return crawler.RunReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
		Sources:    []crawler.SourceReport{payper},
	}
}

func TestRecordRunSetsCollectors(t *testing.T) {
	t.Parallel()

	rec := New()
	rec.RecordRun(sampleReport(false))

	assert.InDelta(t, 80, testutil.ToFloat64(rec.recordsExtracted.WithLabelValues("payper")), 0)
	assert.InDelta(t, 29, testutil.ToFloat64(rec.pagesVisited.WithLabelValues("payper")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(rec.eventsTotal.WithLabelValues("payper", "wait_timeout")), 0)
	assert.InDelta(t, 78, testutil.ToFloat64(rec.loadRecords.WithLabelValues("payper", "inserted")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(rec.loadRecords.WithLabelValues("payper", "skipped_duplicate")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.sourceStatus.WithLabelValues("payper", "succeeded")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(rec.sourceStatus.WithLabelValues("payper", "failed")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(rec.runDuration), 0)

	n, err := testutil.GatherAndCount(rec.Registry, "catalog_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, float64(time.Date(2026, 10, 16, 2, 0, 42, 0, time.UTC).Unix()), testutil.ToFloat64(rec.lastSuccess), 0)
}

func TestFailedRunOmitsLastSuccess(t *testing.T) {
	t.Parallel()

	rec := New()
	rec.RecordRun(sampleReport(true))

	n, err := testutil.GatherAndCount(rec.Registry, "catalog_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.sourceStatus.WithLabelValues("payper", "failed")), 0)
}

func TestPushPostsToJobGroup(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "http://pushgateway:9091/metrics/job/catalog_crawler",
		httpmock.NewStringResponder(http.StatusOK, ""))

	rec := New()
	rec.RecordRun(sampleReport(false))
	err := rec.Push(context.Background(), PushConfig{
		URL:    "http://pushgateway:9091",
		Client: &http.Client{Transport: transport},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestPushErrors(t *testing.T) {
	t.Parallel()

	rec := New()
	require.ErrorContains(t, rec.Push(context.Background(), PushConfig{}), "push_url is required")

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "http://pushgateway:9091/metrics/job/nightly",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	err := rec.Push(context.Background(), PushConfig{
		URL:    "http://pushgateway:9091",
		Job:    "nightly",
		Client: &http.Client{Transport: transport},
	})
	require.ErrorContains(t, err, "push metrics")
}
