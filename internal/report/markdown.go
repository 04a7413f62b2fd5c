package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkcheck/internal/model"
)

// MarkdownWriter outputs the run result in Markdown format.
// This format is designed for pull request comments and CI summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run result in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	var summary model.RunSummary
	if result != nil {
		summary = result.Summary
	}
	rep := reportOf(result)

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary, rep)
	w.writeDocuments(md, rep)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s model.RunSummary) {
	md.H1("Link Check Report")
	md.PlainText("")

	rows := [][]string{
		{"Root", "`" + s.Root + "`"},
	}
	if s.RunID != "" {
		rows = append(rows, []string{"Run ID", "`" + s.RunID + "`"})
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")})
		rows = append(rows, []string{"Duration", s.Duration().Round(time.Millisecond).String()})
	}
	rows = append(rows, []string{"Documents", strconv.Itoa(s.Documents)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the link counters, a distribution chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.RunSummary, rep model.Report) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Links found", strconv.Itoa(s.LinksFound)},
			{"Reachable", strconv.Itoa(s.Reachable())},
			{"Broken", strconv.Itoa(rep.Count())},
			{"Excluded", strconv.Itoa(s.Excluded)},
			{"Blacklisted", strconv.Itoa(s.Blacklisted)},
		},
	})
	md.PlainText("")

	if s.LinksFound > 0 {
		w.writePieChart(md, s, rep)
	}

	switch {
	case rep.Count() > 0:
		md.Cautionf("%d broken links in %d documents.", rep.Count(), len(rep))
	case s.FailedDocuments > 0:
		md.Warningf("No broken links recorded, but %d documents could not be processed.", s.FailedDocuments)
	default:
		md.Tip("No broken links found.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.RunSummary, rep model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Outcomes"),
		piechart.WithShowData(true),
	)

	counts := []struct {
		label string
		n     int
	}{
		{"Reachable", s.Reachable()},
		{"Broken", rep.Count()},
		{"Excluded", s.Excluded},
		{"Blacklisted", s.Blacklisted},
	}
	for _, c := range counts {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDocuments writes one table of broken links per document.
func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, rep model.Report) {
	md.H2("Broken Links")
	md.PlainText("")

	if rep.Empty() {
		md.PlainText("No broken links.")
		md.PlainText("")
		return
	}

	for _, doc := range rep.Documents() {
		md.H3("`" + doc + "`")
		md.PlainText("")

		rows := make([][]string, 0, len(rep[doc]))
		for _, l := range rep[doc] {
			rows = append(rows, []string{l.URL, l.Reason})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkcheck](https://github.com/nao1215/linkcheck)*")
}
