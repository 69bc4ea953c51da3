// Package crawler defines core types shared across subsystems.
package crawler

import (
	"errors"
	"strings"
)

var (
	// ErrTimeoutCondition is returned by Session.WaitFor when the condition never held.
	ErrTimeoutCondition = errors.New("wait condition timed out")
	// ErrRequiredElement marks a category whose mandatory element never appeared.
	ErrRequiredElement = errors.New("required element not found")
)

// Product is one normalized catalog entry extracted from a listing page.
// Which of ColorCount and Colors is meaningful is fixed by the source schema.
type Product struct {
	Reference  string   `json:"reference"`
	Name       string   `json:"name"`
	Image      string   `json:"image"`
	Link       string   `json:"link,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	Category   string   `json:"category,omitempty"`
	Price      string   `json:"price,omitempty"`
	ColorCount int      `json:"color_count,omitempty"`
	Colors     []string `json:"colors,omitempty"`
}

// Eligible reports whether the record carries the natural key required for ingestion.
func (p Product) Eligible() bool {
	return strings.TrimSpace(p.Reference) != ""
}

// Category is one configured listing entry point for a source.
type Category struct {
	// Name is the source-native category key; it may be empty for sources that
	// label items from the page itself.
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// PageRequest asks an adapter for one page of a category.
type PageRequest struct {
	Source   string
	Category Category
	// Index is 1-based.
	Index int
}

// EventKind classifies a non-fatal occurrence recorded during a run.
type EventKind string

// Event kinds surfaced in the RunReport.
const (
	EventWaitTimeout      EventKind = "wait_timeout"
	EventExtractionFailed EventKind = "extraction_failed"
	EventCategorySkipped  EventKind = "category_skipped"
	EventPageCapReached   EventKind = "page_cap_reached"
	EventSessionFailed    EventKind = "session_failed"
	EventNoRecords        EventKind = "no_records"
	EventIngestionFailed  EventKind = "ingestion_failed"
)

// Event is a non-fatal diagnostic attached to a source report.
type Event struct {
	Kind     EventKind `json:"kind"`
	Category string    `json:"category,omitempty"`
	URL      string    `json:"url,omitempty"`
	Page     int       `json:"page,omitempty"`
	Message  string    `json:"message"`
}

// ExtractionResult is the outcome of fetching one page.
type ExtractionResult struct {
	URL     string
	Records []Product
	Events  []Event
	// Err is fatal for the category being crawled.
	Err error
}

// Empty reports whether the page produced no records.
func (r ExtractionResult) Empty() bool {
	return len(r.Records) == 0
}

// CategoryResult aggregates every page fetched for a single category.
type CategoryResult struct {
	Category   Category
	Records    []Product
	Pages      int
	Events     []Event
	CapReached bool
	Err        error
}
