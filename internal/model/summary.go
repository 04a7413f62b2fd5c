package model

import "time"

// RunSummary describes one execution of the checker.
// It is filled in by the runner and stored in the run history.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Root is the file or directory that was scanned.
	Root string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Documents is the number of documents discovered.
	Documents int `json:"documents"`

	// LinksFound is the number of unique links per document, summed.
	LinksFound int `json:"links_found"`

	// LinksChecked is the number of links handed to the checker, blacklisted
	// links included.
	LinksChecked int `json:"links_checked"`

	// Excluded is the number of links skipped through the exclusion set.
	Excluded int `json:"excluded"`

	// Blacklisted is the number of links bypassed by the blacklist.
	Blacklisted int `json:"blacklisted"`

	// Broken is the number of broken links recorded in the report.
	Broken int `json:"broken"`

	// FailedDocuments is the number of documents whose unit failed.
	FailedDocuments int `json:"failed_documents"`

	// CacheHits and CacheMisses count outcome cache lookups during the run.
	// A miss is one network request.
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Reachable returns the number of probed links that were reachable.
func (s RunSummary) Reachable() int {
	return max(s.LinksChecked-s.Blacklisted-s.Broken, 0)
}

// RunResult is the outcome of a complete run: the report handed to the sink
// and the summary describing how it was produced.
type RunResult struct {
	Report  Report
	Summary RunSummary
}

// DocumentResult collects the per-document state while a document moves
// through the pipeline steps.
type DocumentResult struct {
	// Document is the file being processed.
	Document Document

	// Links holds the normalized URLs extracted from the document, sorted.
	Links []string

	// Pending holds the links still to be checked after exclusion.
	Pending []string

	// Broken holds the links that failed their check.
	Broken []BrokenLink

	Excluded    int
	Blacklisted int
	Checked     int
}

// NewDocumentResult returns an empty result for doc.
func NewDocumentResult(doc Document) *DocumentResult {
	return &DocumentResult{Document: doc}
}
