package checker

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultRetryCount is the number of retries after the first attempt.
	DefaultRetryCount = 3

	// DefaultRetryBackoff is the wait before the first retry. Each further
	// retry doubles it.
	DefaultRetryBackoff = 500 * time.Millisecond

	// maxRetryWait caps both the exponential backoff and Retry-After.
	maxRetryWait = 30 * time.Second

	// drainLimit bounds how much of a discarded body is read so the
	// connection can be reused.
	drainLimit = 64 << 10
)

// DefaultRetryStatuses are the response codes retried by default.
func DefaultRetryStatuses() []int {
	return []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
}

// RetryPolicy controls how the transport repeats failed attempts.
type RetryPolicy struct {
	// Count is the number of retries after the first attempt. Zero disables
	// retries.
	Count int

	// Backoff is the wait before the first retry; it doubles every retry.
	Backoff time.Duration

	// Statuses are the response codes that trigger a retry.
	Statuses []int

	// AttemptTimeout bounds each attempt when the request context carries no
	// timeout of its own. Zero means no bound.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the documented retry defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Count:    DefaultRetryCount,
		Backoff:  DefaultRetryBackoff,
		Statuses: DefaultRetryStatuses(),
	}
}

func (p RetryPolicy) retryStatus(code int) bool {
	for _, s := range p.Statuses {
		if s == code {
			return true
		}
	}
	return false
}

// backoff returns the wait before retry number n (starting at 0).
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.Backoff
	for i := 0; i < n && d < maxRetryWait; i++ {
		d *= 2
	}
	return min(d, maxRetryWait)
}

type attemptTimeoutKey struct{}

// withAttemptTimeout stores the timeout applied to every attempt of
// requests made with ctx.
func withAttemptTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, attemptTimeoutKey{}, d)
}

// retryTransport is an http.RoundTripper that repeats attempts on connect
// errors and on retryable status codes. Every attempt runs under its own
// timeout; the timeout is released when the response body is closed.
type retryTransport struct {
	base      http.RoundTripper
	policy    RetryPolicy
	userAgent string
	sleep     func(context.Context, time.Duration) error
}

func newRetryTransport(base http.RoundTripper, policy RetryPolicy, userAgent string) *retryTransport {
	return &retryTransport{
		base:      base,
		policy:    policy,
		userAgent: userAgent,
		sleep:     sleepContext,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parent := req.Context()
	timeout := t.policy.AttemptTimeout
	if d, ok := parent.Value(attemptTimeoutKey{}).(time.Duration); ok {
		timeout = d
	}

	for attempt := 0; ; attempt++ {
		ctx, cancel := parent, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parent, timeout)
		}

		r, err := t.prepare(req.Clone(ctx), attempt)
		if err != nil {
			cancel()
			return nil, err
		}

		resp, err := t.base.RoundTrip(r)
		if !t.shouldRetry(parent, attempt, r, resp, err) {
			if err != nil {
				cancel()
				return nil, err
			}
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		wait := t.policy.backoff(attempt)
		if resp != nil {
			wait = max(wait, retryAfter(resp))
			drain(resp.Body)
		}
		cancel()

		if err := t.sleep(parent, wait); err != nil {
			return nil, err
		}
	}
}

func (t *retryTransport) prepare(r *http.Request, attempt int) (*http.Request, error) {
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if attempt > 0 && r.Body != nil && r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func (t *retryTransport) shouldRetry(parent context.Context, attempt int, r *http.Request, resp *http.Response, err error) bool {
	if attempt >= t.policy.Count || parent.Err() != nil {
		return false
	}
	if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
		return false
	}
	if err != nil {
		return isConnectError(err) || isTimeout(err)
	}
	return t.policy.retryStatus(resp.StatusCode)
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryWait)
}

func drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, body, drainLimit)
	_ = body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cancelOnClose releases the attempt timeout once the caller is done with
// the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
