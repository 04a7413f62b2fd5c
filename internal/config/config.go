package config

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/linkcheck/internal/checker"
	"github.com/nao1215/linkcheck/internal/link"
	"github.com/nao1215/linkcheck/internal/pipeline"
	"github.com/nao1215/linkcheck/internal/report"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkcheck"

	// DefaultMaxWorkers is the number of documents checked in parallel.
	DefaultMaxWorkers = pipeline.DefaultConcurrency

	// DefaultDelay is the pause between two requests made for the same
	// document. It keeps a document full of links to one host from
	// hammering that host.
	DefaultDelay = 500 * time.Millisecond

	// DefaultTimeout bounds a single HTTP attempt, not the whole run.
	DefaultTimeout = checker.DefaultTimeout

	// DefaultCacheSize is the number of outcomes kept by the checker cache.
	DefaultCacheSize = checker.DefaultCacheSize

	// DefaultFormat is the report format written to the output file.
	DefaultFormat = report.FormatJSON
)

// DefaultBlacklist returns the domains that are never probed unless the
// user removes them: reserved documentation domains and the local host.
func DefaultBlacklist() []string {
	return []string{"localhost", "example.com", "example.org", "example.net"}
}

// Config holds all configuration options for a run.
// It is populated from the configuration file and CLI flags and passed
// down explicitly; nothing reads it from global state.
type Config struct {
	// Root is the document file or directory to check.
	Root string `yaml:"-"`

	// Output is the report file. "-" writes the report to stdout.
	Output string `yaml:"output,omitempty"`

	// Format is the report format: json, markdown or text.
	Format string `yaml:"format,omitempty"`

	// MaxWorkers is the number of documents processed concurrently.
	MaxWorkers int `yaml:"max_workers,omitempty"`

	// Delay is the pause between two requests of one document.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Timeout bounds every HTTP attempt.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Blacklist lists domains treated as reachable without a request.
	// The entries are appended to DefaultBlacklist.
	Blacklist []string `yaml:"blacklist,omitempty"`

	// ExcludeFrom is an optional file of URLs that are never checked.
	ExcludeFrom string `yaml:"exclude_from,omitempty"`

	// Extensions overrides the document extensions searched under Root.
	Extensions []string `yaml:"extensions,omitempty"`

	// Hidden makes discovery descend into hidden files and directories.
	Hidden bool `yaml:"hidden,omitempty"`

	// FailOnBroken makes the CLI exit with status 2 when links are broken.
	FailOnBroken bool `yaml:"fail_on_broken,omitempty"`

	// RetryCount is the number of retries after a failed attempt.
	RetryCount int `yaml:"retry_count"`

	// RetryBackoff is the wait before the first retry. It doubles on
	// every further retry.
	RetryBackoff time.Duration `yaml:"retry_backoff,omitempty"`

	// RetryStatuses are the HTTP status codes that are retried.
	RetryStatuses []int `yaml:"retry_statuses,omitempty"`

	// CacheSize is the capacity of the outcome cache.
	CacheSize int `yaml:"cache_size,omitempty"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent,omitempty"`

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	ProxyAddress string `yaml:"proxy,omitempty"`

	// Insecure disables TLS certificate verification.
	Insecure bool `yaml:"insecure,omitempty"`

	// SaveHistory stores every run summary and report in the history database.
	SaveHistory bool `yaml:"save_history"`

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/linkcheck on Linux).
	DBDir string `yaml:"db_dir,omitempty"`

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Format:        DefaultFormat,
		MaxWorkers:    DefaultMaxWorkers,
		Delay:         DefaultDelay,
		Timeout:       DefaultTimeout,
		RetryCount:    checker.DefaultRetryCount,
		RetryBackoff:  checker.DefaultRetryBackoff,
		RetryStatuses: checker.DefaultRetryStatuses(),
		CacheSize:     DefaultCacheSize,
		UserAgent:     checker.DefaultUserAgent,
		SaveHistory:   true,
		DBDir:         XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for linkcheck.
// On Linux: ~/.local/share/linkcheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcheck.
// On Linux: ~/.config/linkcheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return ErrNoOutput
	}
	if !validFormat(c.Format) {
		return ErrUnknownFormat
	}
	if c.MaxWorkers <= 0 {
		return ErrInvalidMaxWorkers
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryCount < 0 {
		return ErrInvalidRetryCount
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	if c.CacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	return nil
}

func validFormat(format string) bool {
	switch strings.ToLower(format) {
	case "md", "txt":
		return true
	default:
		return slices.Contains(report.Formats(), strings.ToLower(format))
	}
}

// MergeBlacklist returns defaults followed by extra, lower-cased and with
// duplicates removed. The first occurrence of a domain keeps its position.
func MergeBlacklist(defaults, extra []string) []string {
	seen := make(map[string]struct{}, len(defaults)+len(extra))
	merged := make([]string, 0, len(defaults)+len(extra))
	for _, d := range slices.Concat(defaults, extra) {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		merged = append(merged, d)
	}
	return merged
}

// RetryPolicy returns the retry policy of the probe transport.
func (c *Config) RetryPolicy() checker.RetryPolicy {
	return checker.RetryPolicy{
		Count:    c.RetryCount,
		Backoff:  c.RetryBackoff,
		Statuses: slices.Clone(c.RetryStatuses),
	}
}

// ClientOptions returns the options of the probe HTTP client.
func (c *Config) ClientOptions() checker.ClientOptions {
	return checker.ClientOptions{
		UserAgent:    c.UserAgent,
		ProxyAddress: c.ProxyAddress,
		Insecure:     c.Insecure,
		Retry:        c.RetryPolicy(),
	}
}

// Settings returns the run parameters for the pipeline runner. The
// exclusion file is read here; a missing or unreadable file is logged
// and results in an empty exclusion set.
func (c *Config) Settings(logger *slog.Logger) pipeline.Settings {
	return pipeline.Settings{
		Root:       c.Root,
		MaxWorkers: c.MaxWorkers,
		Delay:      c.Delay,
		Timeout:    c.Timeout,
		Blacklist:  link.NewBlacklist(MergeBlacklist(DefaultBlacklist(), c.Blacklist)...),
		Exclusions: link.LoadExclusions(c.ExcludeFrom, logger),
	}
}
