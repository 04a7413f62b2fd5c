package report

import (
	"sync"

	"github.com/nao1215/linkcheck/internal/model"
)

// Aggregator collects broken links from concurrently running document units.
// The zero value is not usable; create one with NewAggregator.
type Aggregator struct {
	mu     sync.Mutex
	report model.Report
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{report: model.Report{}}
}

// Add records the broken links of one document. Empty results are ignored
// so that a document appears in the report only with at least one broken
// link. Adding the same document twice appends.
func (a *Aggregator) Add(doc model.Document, links []model.BrokenLink) {
	if len(links) == 0 {
		return
	}
	cp := make([]model.BrokenLink, len(links))
	copy(cp, links)

	a.mu.Lock()
	defer a.mu.Unlock()
	key := doc.Path()
	a.report[key] = append(a.report[key], cp...)
}

// Report returns a snapshot of the collected links, sorted by URL within
// each document.
func (a *Aggregator) Report() model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.report.Clone()
}
