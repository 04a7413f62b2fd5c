package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [file-or-directory]",
		Short: "Show past runs and compare the latest two",
		Long: `History lists the runs recorded by check-links, newest first.

With --diff it compares the latest two runs of a root and shows:
- Links that broke since the previous run
- Links that were broken before and are fixed now

Runs are recorded in the XDG data directory unless check-links was started
with --no-history.

Examples:
  # List the last runs of every root
  linkcheck history

  # List the runs of docs/
  linkcheck history docs/

  # Compare the latest two runs of docs/
  linkcheck history docs/ --diff

  # Output the comparison as JSON
  linkcheck history docs/ --diff --json

  # Show the broken links of one recorded run
  linkcheck history --show <run-id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().Bool("diff", false,
		"Compare the latest two runs of the given root")
	cmd.Flags().String("show", "",
		"Show the report of the run with this id")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison or the shown run in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	diff, err := flags.GetBool("diff")
	if err != nil {
		return err
	}
	show, err := flags.GetString("show")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}
	if diff && show != "" {
		return errors.New("--diff and --show cannot be used together")
	}

	var root string
	if len(args) == 1 {
		if root, err = filepath.Abs(args[0]); err != nil {
			return fmt.Errorf("invalid root %s: %w", args[0], err)
		}
	}
	if diff && root == "" {
		return errors.New("a root is required to compare runs")
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if show != "" {
				return fmt.Errorf("%w: %s", database.ErrRunNotFound, show)
			}
			fmt.Fprintln(out, "No runs recorded yet.")
			fmt.Fprintln(out, "\nUse 'linkcheck check-links <root> -o <file>' to record one.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if show != "" {
		format := report.FormatText
		switch {
		case jsonOutput:
			format = report.FormatJSON
		case markdownOutput:
			format = report.FormatMarkdown
		}
		return showRun(ctx, db, show, out, format)
	}
	if !diff {
		records, err := db.ListRuns(ctx, root, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, historyEntries(records))
		}
		printHistory(out, root, records)
		return nil
	}

	records, err := db.ListRuns(ctx, root, 2)
	if err != nil {
		return err
	}
	runs, err := db.LatestRuns(ctx, root, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("need at least two runs of %s to compare, found %d", root, len(runs))
	}

	cmp := newComparison(runs[1], runs[0], records[1].BlacklistFingerprint != records[0].BlacklistFingerprint)
	switch {
	case jsonOutput:
		return writeJSON(out, cmp)
	case markdownOutput:
		return writeComparisonMarkdown(out, cmp)
	default:
		writeComparisonText(out, cmp)
		return nil
	}
}

// showRun writes the stored result of one run in the given report format.
func showRun(ctx context.Context, db *database.HistoryDB, runID string, out io.Writer, format string) error {
	result, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	w, err := report.NewWriter(out, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(result); err != nil {
		return fmt.Errorf("failed to write run %s: %w", runID, err)
	}
	return nil
}

// historyEntry is the JSON form of a listed run.
type historyEntry struct {
	model.RunSummary
	BlacklistFingerprint string `json:"blacklist_fingerprint"`
}

func historyEntries(records []database.RunRecord) []historyEntry {
	entries := make([]historyEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, historyEntry{RunSummary: r.Summary, BlacklistFingerprint: r.BlacklistFingerprint})
	}
	return entries
}

// printHistory prints the runs as an aligned table.
func printHistory(w io.Writer, root string, records []database.RunRecord) {
	if len(records) == 0 {
		if root == "" {
			fmt.Fprintln(w, "No runs recorded yet.")
		} else {
			fmt.Fprintf(w, "No runs recorded for %s\n", root)
		}
		return
	}

	fmt.Fprintf(w, "Recorded runs (%d):\n\n", len(records))
	fmt.Fprintf(w, "  %-36s  %-19s  %6s  %6s  %6s  %s\n", "Run ID", "Started", "Docs", "Links", "Broken", "Root")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, r := range records {
		s := r.Summary
		fmt.Fprintf(w, "  %-36s  %-19s  %6d  %6d  %6d  %s\n",
			s.RunID, formatTime(s.StartedAt), s.Documents, s.LinksFound, s.Broken, s.Root)
	}
	fmt.Fprintln(w, "\nUse 'linkcheck history <root> --diff' to compare the latest two runs of a root.")
}

// comparison is the difference between two runs of the same root.
type comparison struct {
	Root             string       `json:"root"`
	PreviousRunID    string       `json:"previous_run_id"`
	CurrentRunID     string       `json:"current_run_id"`
	PreviousStarted  time.Time    `json:"previous_started_at"`
	CurrentStarted   time.Time    `json:"current_started_at"`
	PreviousBroken   int          `json:"previous_broken"`
	CurrentBroken    int          `json:"current_broken"`
	NewlyBroken      model.Report `json:"newly_broken"`
	Fixed            model.Report `json:"fixed"`
	BlacklistChanged bool         `json:"blacklist_changed"`
}

func newComparison(previous, current *model.RunResult, blacklistChanged bool) comparison {
	diff := model.CompareReports(previous.Report, current.Report)
	return comparison{
		Root:             current.Summary.Root,
		PreviousRunID:    previous.Summary.RunID,
		CurrentRunID:     current.Summary.RunID,
		PreviousStarted:  previous.Summary.StartedAt,
		CurrentStarted:   current.Summary.StartedAt,
		PreviousBroken:   previous.Report.Count(),
		CurrentBroken:    current.Report.Count(),
		NewlyBroken:      diff.NewlyBroken,
		Fixed:            diff.Fixed,
		BlacklistChanged: blacklistChanged,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeComparisonText(w io.Writer, c comparison) {
	fmt.Fprintf(w, "Run Comparison: %s\n", c.Root)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "\nPrevious run: %s  (%s, %d broken)\n", formatTime(c.PreviousStarted), c.PreviousRunID, c.PreviousBroken)
	fmt.Fprintf(w, "Current run:  %s  (%s, %d broken)\n", formatTime(c.CurrentStarted), c.CurrentRunID, c.CurrentBroken)
	if c.BlacklistChanged {
		fmt.Fprintln(w, "\nNote: the blacklist changed between the two runs.")
	}

	if c.NewlyBroken.Empty() && c.Fixed.Empty() {
		fmt.Fprintln(w, "\nNo changes.")
		return
	}
	printLinks(w, "Newly broken", "[+]", c.NewlyBroken)
	printLinks(w, "Fixed", "[-]", c.Fixed)
}

func printLinks(w io.Writer, title, marker string, r model.Report) {
	if r.Empty() {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, r.Count())
	for _, doc := range r.Documents() {
		fmt.Fprintf(w, "  %s\n", doc)
		for _, l := range r[doc] {
			fmt.Fprintf(w, "    %s %s (%s)\n", marker, l.URL, l.Reason)
		}
	}
}

func writeComparisonMarkdown(w io.Writer, c comparison) error {
	md := markdown.NewMarkdown(w)
	md.H1("Run Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Previous", "Current"},
		Rows: [][]string{
			{"Run ID", "`" + c.PreviousRunID + "`", "`" + c.CurrentRunID + "`"},
			{"Started", formatTime(c.PreviousStarted), formatTime(c.CurrentStarted)},
			{"Broken", fmt.Sprint(c.PreviousBroken), fmt.Sprint(c.CurrentBroken)},
		},
	})
	md.PlainText("")
	if c.BlacklistChanged {
		md.Note("The blacklist changed between the two runs.")
		md.PlainText("")
	}

	sections := []struct {
		title string
		r     model.Report
	}{
		{"Newly Broken", c.NewlyBroken},
		{"Fixed", c.Fixed},
	}
	for _, sec := range sections {
		md.H2(fmt.Sprintf("%s (%d)", sec.title, sec.r.Count()))
		md.PlainText("")
		if sec.r.Empty() {
			md.PlainText("None.")
			md.PlainText("")
			continue
		}
		rows := make([][]string, 0, sec.r.Count())
		for _, doc := range sec.r.Documents() {
			for _, l := range sec.r[doc] {
				rows = append(rows, []string{"`" + doc + "`", l.URL, l.Reason})
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Document", "URL", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}
	return md.Build()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
