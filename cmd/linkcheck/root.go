package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcheck/internal/log"
)

// Exit statuses of the CLI.
const (
	exitError  = 1
	exitBroken = 2
)

// errBrokenLinks is returned by check-links with --fail-on-broken when the
// report is not empty. Execute maps it to exit status 2.
var errBrokenLinks = errors.New("broken links found")

// NewRootCmd creates the root command for linkcheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkcheck",
		Short: "Find broken links in documentation",
		Long: `linkcheck extracts the links of AsciiDoc, Markdown and HTML documents and
checks that every one of them is still reachable.

Documents are checked in parallel; the links of one document are checked one
after another with a politeness delay. Every distinct URL is requested once
per run, however many documents reference it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the matching status.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, errBrokenLinks) {
		return exitBroken
	}
	return exitError
}

// newLogger builds the logger selected by the persistent flags.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	flags := cmd.Flags()
	verbose, err := flags.GetCount("verbose")
	if err != nil {
		verbose = 0
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		quiet = false
	}
	level := log.LevelFromVerbosity(verbose, quiet)

	if asJSON, err := flags.GetBool("log-json"); err == nil && asJSON {
		return log.NewJSONLogger(w, level)
	}
	return log.NewLogger(w, level)
}
