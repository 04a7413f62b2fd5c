package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showSummary prints the run counters before the broken links.
	showSummary bool

	// showBroken prints the broken links themselves.
	showBroken bool

	// reportPath names the file the full report went to, if any.
	reportPath string
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithSummary configures the writer to print the run counters.
func WithSummary(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSummary = show
	}
}

// WithBrokenLinks configures the writer to list the broken links. Turning
// it off with the summary on gives a summary for the terminal while the
// full report goes elsewhere.
func WithBrokenLinks(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showBroken = show
	}
}

// WithReportPath adds the location of the full report to the summary.
func WithReportPath(path string) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.reportPath = path
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// The summary and the broken links are shown by default.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:  newBaseWriter(output),
		showSummary: true,
		showBroken:  true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run result as plain text.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder
	rep := reportOf(result)

	if w.showSummary && result != nil {
		w.writeSummary(&sb, result.Summary, rep)
	}
	if w.showBroken {
		w.writeBroken(&sb, rep)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.RunSummary, rep model.Report) {
	sb.WriteString("Link check summary\n")
	sb.WriteString(strings.Repeat("=", 18) + "\n")
	if s.Root != "" {
		fmt.Fprintf(sb, "Root:         %s\n", s.Root)
	}
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:     %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Documents:    %d\n", s.Documents)
	fmt.Fprintf(sb, "Links found:  %d\n", s.LinksFound)
	fmt.Fprintf(sb, "Reachable:    %d\n", s.Reachable())
	fmt.Fprintf(sb, "Broken:       %d\n", rep.Count())
	fmt.Fprintf(sb, "Excluded:     %d\n", s.Excluded)
	fmt.Fprintf(sb, "Blacklisted:  %d\n", s.Blacklisted)
	if s.FailedDocuments > 0 {
		fmt.Fprintf(sb, "Failed docs:  %d\n", s.FailedDocuments)
	}
	if s.CacheHits+s.CacheMisses > 0 {
		fmt.Fprintf(sb, "Requests:     %d (%d answered from cache)\n", s.CacheMisses, s.CacheHits)
	}
	if w.reportPath != "" {
		fmt.Fprintf(sb, "Report:       %s\n", w.reportPath)
	}
	if w.showBroken {
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeBroken(sb *strings.Builder, rep model.Report) {
	if rep.Empty() {
		sb.WriteString("No broken links found.\n")
		return
	}

	fmt.Fprintf(sb, "Broken links (%d):\n", rep.Count())
	for _, doc := range rep.Documents() {
		fmt.Fprintf(sb, "\n%s\n", doc)
		for _, l := range rep[doc] {
			fmt.Fprintf(sb, "  [x] %s (%s)\n", l.URL, l.Reason)
		}
	}
}
