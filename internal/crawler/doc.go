// Package crawler holds the catalog crawl domain: product records, the
// browser session and adapter contracts, the pagination controller, and the
// orchestrator that turns a list of sources into a RunReport.
package crawler
