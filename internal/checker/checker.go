package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/linkcheck/internal/link"
	"github.com/nao1215/linkcheck/internal/model"
)

// DefaultTimeout bounds each HTTP attempt of a probe.
const DefaultTimeout = 15 * time.Second

// Checker probes URLs and memoizes the outcomes.
// A Checker is safe for concurrent use.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	blacklist link.Blacklist
	cache     *Cache
	logger    *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets the client used for probes, typically one built by
// NewHTTPClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-attempt timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBlacklist sets the domains that bypass probing.
func WithBlacklist(bl link.Blacklist) Option {
	return func(c *Checker) {
		c.blacklist = bl
	}
}

// WithCache shares an outcome cache between checkers.
func WithCache(cache *Cache) Option {
	return func(c *Checker) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the logger for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Checker. Without options it probes directly with the default
// retry policy, a DefaultTimeout per attempt, no blacklist and a private
// cache of DefaultCacheSize entries.
func New(opts ...Option) *Checker {
	c := &Checker{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client, _ = NewHTTPClient(ClientOptions{Retry: DefaultRetryPolicy()}) //nolint:errcheck // only fails with a proxy address
	}
	if c.cache == nil {
		c.cache = NewCache(DefaultCacheSize)
	}
	return c
}

// Cache returns the outcome cache of the checker.
func (c *Checker) Cache() *Cache {
	return c.cache
}

// Blacklist returns the blacklist of the checker.
func (c *Checker) Blacklist() link.Blacklist {
	return c.blacklist
}

// Reachable reports whether rawURL is reachable or blacklisted.
func (c *Checker) Reachable(ctx context.Context, rawURL string) bool {
	return c.Check(ctx, rawURL).Reachable()
}

// Check returns the outcome for rawURL. Blacklisted URLs are never probed.
// Other URLs are probed at most once per (url, timeout, blacklist) for the
// lifetime of the cache.
func (c *Checker) Check(ctx context.Context, rawURL string) model.Outcome {
	if c.blacklist.Match(rawURL) {
		c.logger.Debug("blacklisted, not probing", "url", rawURL)
		return model.Blacklisted()
	}

	key := Key{URL: rawURL, Timeout: c.timeout, Blacklist: c.blacklist.Fingerprint()}
	return c.cache.GetOrCompute(key, func() (model.Outcome, bool) {
		o := c.probe(ctx, rawURL)
		return o, ctx.Err() == nil
	})
}

// probe issues HEAD and falls back to GET when HEAD reports an error status.
func (c *Checker) probe(ctx context.Context, rawURL string) model.Outcome {
	status, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return c.failure(rawURL, http.MethodHead, err)
	}
	if status < http.StatusBadRequest {
		c.logger.Debug("reachable", "url", rawURL, "method", http.MethodHead, "status", status)
		return model.Reachable(status)
	}

	headStatus := status
	status, err = c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return c.failure(rawURL, http.MethodGet, err)
	}
	if status < http.StatusBadRequest {
		c.logger.Debug("reachable after GET fallback", "url", rawURL, "head_status", headStatus, "status", status)
		return model.Reachable(status)
	}

	c.logger.Info("broken link", "url", rawURL, "status", status)
	return model.Broken(statusReason(status), status)
}

func (c *Checker) failure(rawURL, method string, err error) model.Outcome {
	reason := classify(err)
	c.logger.Info("broken link", "url", rawURL, "method", method, "reason", reason, "error", err)
	return model.Broken(reason, 0)
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(withAttemptTimeout(ctx, c.timeout), method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.CopyN(io.Discard, resp.Body, drainLimit)
		_ = resp.Body.Close()
	}()
	return resp.StatusCode, nil
}
