// Package metrics converts run reports into Prometheus metrics and pushes
// them to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

// PushConfig addresses a Pushgateway grouping.
type PushConfig struct {
	URL string
	Job string
	// Client overrides the HTTP client used to push.
	Client *http.Client
}

// Recorder bundles the run collectors on a dedicated registry.
type Recorder struct {
	Registry *prometheus.Registry

	recordsExtracted *prometheus.GaugeVec
	pagesVisited     *prometheus.GaugeVec
	eventsTotal      *prometheus.CounterVec
	loadRecords      *prometheus.GaugeVec
	sourceStatus     *prometheus.GaugeVec
	runDuration      prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

// New constructs and registers all collectors.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	recordsExtracted := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_records_extracted",
			Help: "Eligible records extracted in the last run, by source.",
		},
		[]string{"source"},
	)
	pagesVisited := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_pages_visited",
			Help: "Listing pages fetched in the last run, by source.",
		},
		[]string{"source"},
	)
	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_events_total",
			Help: "Diagnostic events raised in the last run, by source and kind.",
		},
		[]string{"source", "kind"},
	)
	loadRecords := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_load_records",
			Help: "Per-record ingestion outcomes of the last run.",
		},
		[]string{"source", "outcome"},
	)
	sourceStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_source_status",
			Help: "Final status of each source in the last run (1 for the current status).",
		},
		[]string{"source", "status"},
	)
	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_run_duration_seconds",
		Help: "Wall time of the last run.",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_last_success_timestamp_seconds",
		Help: "Unix time of the last run in which no source failed.",
	})

	registry.MustRegister(recordsExtracted, pagesVisited, eventsTotal, loadRecords, sourceStatus, runDuration)

	return &Recorder{
		Registry:         registry,
		recordsExtracted: recordsExtracted,
		pagesVisited:     pagesVisited,
		eventsTotal:      eventsTotal,
		loadRecords:      loadRecords,
		sourceStatus:     sourceStatus,
		runDuration:      runDuration,
		lastSuccess:      lastSuccess,
	}
}

var statuses = []crawler.Status{crawler.StatusSucceeded, crawler.StatusNoop, crawler.StatusFailed, crawler.StatusAborted}

// RecordRun sets every collector from report.
func (r *Recorder) RecordRun(report crawler.RunReport) {
	if r == nil {
		return
	}
	for _, src := range report.Sources {
		r.recordsExtracted.WithLabelValues(src.Source).Set(float64(src.Records))
		r.pagesVisited.WithLabelValues(src.Source).Set(float64(src.Pages))
		for _, ev := range src.Events {
			r.eventsTotal.WithLabelValues(src.Source, string(ev.Kind)).Inc()
		}
		r.loadRecords.WithLabelValues(src.Source, "inserted").Set(float64(src.Load.Inserted))
		r.loadRecords.WithLabelValues(src.Source, "updated").Set(float64(src.Load.Updated))
		r.loadRecords.WithLabelValues(src.Source, "skipped_duplicate").Set(float64(src.Load.SkippedDuplicate))
		r.loadRecords.WithLabelValues(src.Source, "failed").Set(float64(src.Load.Failed))
		for _, st := range statuses {
			v := 0.0
			if st == src.Status {
				v = 1
			}
			r.sourceStatus.WithLabelValues(src.Source, string(st)).Set(v)
		}
	}
	r.runDuration.Set(report.Duration().Seconds())
	if !report.Failed() {
		finished := report.FinishedAt
		if finished.IsZero() {
			finished = time.Now()
		}
		r.lastSuccess.Set(float64(finished.Unix()))
		// Registered only on success so a failed run's push keeps the previous value.
		_ = r.Registry.Register(r.lastSuccess)
	}
}

// Push sends the registry to the Pushgateway, replacing same-named metrics
// of the job group and leaving the others untouched.
func (r *Recorder) Push(ctx context.Context, cfg PushConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("metrics.push_url is required")
	}
	job := cfg.Job
	if job == "" {
		job = "catalog_crawler"
	}
	pusher := push.New(cfg.URL, job).Gatherer(r.Registry)
	if cfg.Client != nil {
		pusher = pusher.Client(cfg.Client)
	}
	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
