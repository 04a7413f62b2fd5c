package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcheck/internal/checker"
	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/discovery"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pipeline"
	"github.com/nao1215/linkcheck/internal/report"
)

// stdoutOutput selects standard output as the report destination.
const stdoutOutput = "-"

// NewCheckCmd creates the check-links command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-links <file-or-directory>",
		Short: "Check the links of a document tree",
		Long: `Check-links finds the documents under the given root, extracts their links
and checks that every link is reachable.

A link is reported when the server answers with a status of 400 or more to
both HEAD and GET, or when the request fails (timeout, DNS, TLS, connection).
Domains on the blacklist are treated as reachable without a request; URLs in
the exclusion file are never checked.

Examples:
  # Check all documents under docs/ and write a JSON report
  linkcheck check-links docs/ -o broken_links.json

  # Write a Markdown report and fail the build on broken links
  linkcheck check-links docs/ -o report.md -f markdown --fail-on-broken

  # Wait half a second between requests, 10 seconds timeout per request
  linkcheck check-links docs/ -o broken_links.json --delay 0.5 --timeout 10

  # Skip URLs listed in a file and never probe internal hosts
  linkcheck check-links docs/ -o - --exclude-from .linkignore --blacklist intranet.example

Configuration file (.linkcheck.yaml) example:
  output: broken_links.json
  max_workers: 8
  delay: 500ms
  blacklist:
    - intranet.example`,
		Args: cobra.ExactArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		`Report file path, "-" for stdout (creates directories if needed)`)
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: json, markdown or text")
	cmd.Flags().VarP(newSecondsValue(config.DefaultTimeout), "timeout", "t",
		"Timeout of each HTTP request, in seconds (10) or as a duration (10s)")
	cmd.Flags().IntP("max-workers", "w", config.DefaultMaxWorkers,
		"Number of documents checked in parallel")
	cmd.Flags().VarP(newSecondsValue(config.DefaultDelay), "delay", "d",
		"Delay between two requests of the same document, in seconds (0.5) or as a duration (500ms)")
	cmd.Flags().StringSlice("blacklist", nil,
		"Additional domains treated as reachable without a request")
	cmd.Flags().String("exclude-from", "",
		"File with URLs that are never checked, one per line")
	cmd.Flags().StringSlice("ext", nil,
		"Document extensions to search (default: adoc, asciidoc, asc, md, markdown, html, htm)")
	cmd.Flags().Bool("hidden", false,
		"Also search hidden files and directories")
	cmd.Flags().Bool("fail-on-broken", false,
		"Exit with status 2 when broken links are found")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkcheck.yaml or the XDG config directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port) for all requests")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")
	cmd.Flags().Int("retries", checker.DefaultRetryCount,
		"Retries for connection errors and 429/5xx responses")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Number of link outcomes kept in memory")
	cmd.Flags().String("user-agent", checker.DefaultUserAgent,
		"User-Agent header of every request")

	return cmd
}

// runCheckCmd executes the check-links command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runCheck(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		if isConfigError(err) {
			return fmt.Errorf("configuration error: %w", err)
		}
		return err
	}
	if cfg.FailOnBroken && !result.Report.Empty() {
		return fmt.Errorf("%w: %d", errBrokenLinks, result.Report.Count())
	}
	return nil
}

// buildConfig loads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	flags := cmd.Flags()

	configFlag, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg := config.NewConfig()
	if path := config.FindConfigFile(configFlag); path != "" {
		if cfg, err = config.LoadConfigFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if configFlag != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configFlag)
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid root %s: %w", args[0], err)
	}
	cfg.Root = root

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg. Flags left at their
// default never override the configuration file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("output") {
		if cfg.Output, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("format") {
		if cfg.Format, err = flags.GetString("format"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("max-workers") {
		if cfg.MaxWorkers, err = flags.GetInt("max-workers"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("blacklist") {
		extra, err := flags.GetStringSlice("blacklist")
		if err != nil {
			return err
		}
		cfg.Blacklist = append(cfg.Blacklist, extra...)
	}
	if flags.Changed("exclude-from") {
		if cfg.ExcludeFrom, err = flags.GetString("exclude-from"); err != nil {
			return err
		}
	}
	if flags.Changed("ext") {
		if cfg.Extensions, err = flags.GetStringSlice("ext"); err != nil {
			return err
		}
	}
	if flags.Changed("hidden") {
		if cfg.Hidden, err = flags.GetBool("hidden"); err != nil {
			return err
		}
	}
	if flags.Changed("fail-on-broken") {
		if cfg.FailOnBroken, err = flags.GetBool("fail-on-broken"); err != nil {
			return err
		}
	}
	if flags.Changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return err
		}
		cfg.SaveHistory = !noHistory
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("insecure") {
		if cfg.Insecure, err = flags.GetBool("insecure"); err != nil {
			return err
		}
	}
	if flags.Changed("retries") {
		if cfg.RetryCount, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if flags.Changed("cache-size") {
		if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	return nil
}

// runCheck executes one run and records it in the history. The result is
// returned whenever a report was produced, even together with an error.
func runCheck(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) (*model.RunResult, error) {
	client, err := checker.NewHTTPClient(cfg.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	sink, err := newSink(cfg, stdout)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	var finderOpts []discovery.Option
	if len(cfg.Extensions) > 0 {
		finderOpts = append(finderOpts, discovery.WithExtensions(cfg.Extensions))
	}
	if cfg.Hidden {
		finderOpts = append(finderOpts, discovery.WithHidden())
	}
	finder := discovery.NewFinder(cfg.Root, finderOpts...)
	settings := cfg.Settings(logger)

	runner := pipeline.NewRunner(
		finder,
		settings,
		pipeline.WithSink(sink),
		pipeline.WithHTTPClient(client),
		pipeline.WithCache(checker.NewCache(cfg.CacheSize)),
		pipeline.WithRunnerLogger(logger),
	)

	logger.Info("starting run",
		"root", finder.Root(),
		"maxWorkers", cfg.MaxWorkers,
		"delay", cfg.Delay,
		"timeout", cfg.Timeout,
		"blacklist", settings.Blacklist.Len(),
		"exclusions", settings.Exclusions.Len(),
	)
	logger.Debug("excluded URLs", "urls", settings.Exclusions.URLs())

	result, runErr := runner.Run(ctx)
	if result != nil && cfg.SaveHistory {
		// The history is written even after an interrupt.
		if err := saveRun(context.WithoutCancel(ctx), cfg.DBDir, result, settings.Blacklist.Fingerprint(), logger); err != nil {
			logger.Error("failed to record run in history", "error", err)
		}
	}
	return result, runErr
}

// newSink returns where the runner writes the report. A report written to a
// file is followed by a short summary on stdout.
func newSink(cfg *config.Config, stdout io.Writer) (pipeline.Sink, error) {
	if cfg.Output == stdoutOutput {
		return report.NewWriter(stdout, cfg.Format)
	}
	return report.NewMultiWriter(
		report.NewFileSink(cfg.Output, cfg.Format),
		report.NewSimpleWriter(stdout, report.WithBrokenLinks(false), report.WithReportPath(cfg.Output)),
	), nil
}

// saveRun stores result in the history database in dbDir.
func saveRun(ctx context.Context, dbDir string, result *model.RunResult, fingerprint string, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.SaveRun(ctx, result, fingerprint); err != nil {
		return err
	}
	logger.Info("run recorded in history", "runID", result.Summary.RunID, "db", db.Path())
	return nil
}

// isConfigError reports whether err stops a run before it starts.
func isConfigError(err error) bool {
	return errors.Is(err, discovery.ErrRootNotFound) ||
		errors.Is(err, discovery.ErrUnsupportedDocument) ||
		errors.Is(err, pipeline.ErrNoSink)
}
