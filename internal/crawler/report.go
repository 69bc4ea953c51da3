package crawler

import "time"

// Status is the final state of one source within a run.
type Status string

// Source status values.
const (
	StatusSucceeded Status = "succeeded"
	// StatusNoop means the crawl produced no eligible records and the destination was left untouched.
	StatusNoop    Status = "noop"
	StatusFailed  Status = "failed"
	StatusAborted Status = "aborted"
)

// LoadResult counts per-record ingestion outcomes.
type LoadResult struct {
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Failed           int `json:"failed"`
}

// Persisted returns the number of records written or overwritten.
func (r LoadResult) Persisted() int {
	return r.Inserted + r.Updated
}

// Add folds other into r.
func (r LoadResult) Add(other LoadResult) LoadResult {
	return LoadResult{
		Inserted:         r.Inserted + other.Inserted,
		Updated:          r.Updated + other.Updated,
		SkippedDuplicate: r.SkippedDuplicate + other.SkippedDuplicate,
		Failed:           r.Failed + other.Failed,
	}
}

// SourceReport summarizes one source crawl and load.
type SourceReport struct {
	Source            string     `json:"source"`
	Table             string     `json:"table"`
	Strategy          Strategy   `json:"strategy"`
	Status            Status     `json:"status"`
	Records           int        `json:"records"`
	Ineligible        int        `json:"ineligible"`
	Pages             int        `json:"pages"`
	Categories        int        `json:"categories"`
	SkippedCategories int        `json:"skipped_categories"`
	Load              LoadResult `json:"load"`
	Events            []Event    `json:"events,omitempty"`
	Error             string     `json:"error,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
}

// Failed reports whether the source counts against the run exit status.
func (r SourceReport) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusAborted
}

// Duration returns the wall time spent on the source.
func (r SourceReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunReport aggregates every source outcome of a pipeline run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Aborted    bool           `json:"aborted"`
	Sources    []SourceReport `json:"sources"`
}

// Failed reports whether any source failed or the run was aborted.
func (r RunReport) Failed() bool {
	if r.Aborted {
		return true
	}
	for _, s := range r.Sources {
		if s.Failed() {
			return true
		}
	}
	return false
}

// Status collapses the run into a single label.
func (r RunReport) Status() Status {
	switch {
	case r.Aborted:
		return StatusAborted
	case r.Failed():
		return StatusFailed
	default:
		return StatusSucceeded
	}
}

// Duration returns the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals sums load results over every source.
func (r RunReport) Totals() LoadResult {
	var total LoadResult
	for _, s := range r.Sources {
		total = total.Add(s.Load)
	}
	return total
}

// Attributes labels the published report message.
func (r RunReport) Attributes() map[string]string {
	return map[string]string{
		"run_id": r.RunID,
		"status": string(r.Status()),
	}
}

// EventCounts tallies events by kind across every source.
func (r RunReport) EventCounts() map[EventKind]int {
	out := make(map[EventKind]int)
	for _, s := range r.Sources {
		for _, e := range s.Events {
			out[e.Kind]++
		}
	}
	return out
}
