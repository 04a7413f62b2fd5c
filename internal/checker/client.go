package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultUserAgent identifies the checker to servers.
	DefaultUserAgent = "linkcheck (+https://github.com/nao1215/linkcheck)"

	// DefaultMaxRedirects is the redirect limit of a probe.
	DefaultMaxRedirects = 10
)

// ClientOptions configures the http.Client used for probes.
type ClientOptions struct {
	// UserAgent is sent with every probe. Empty means DefaultUserAgent.
	UserAgent string

	// ProxyAddress routes probes through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// MaxRedirects limits redirects per probe. Zero means DefaultMaxRedirects.
	MaxRedirects int

	// Retry is the retry policy of the transport.
	Retry RetryPolicy
}

// NewHTTPClient builds the probe client: a pooled transport, optionally
// dialing through a SOCKS5 proxy, wrapped in the retrying transport.
// The client itself has no overall timeout; the per-attempt timeout is
// applied by the transport.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.Insecure, //nolint:gosec // opt-in through --insecure
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	if opts.ProxyAddress != "" {
		dial, err := socksDialer(opts.ProxyAddress)
		if err != nil {
			return nil, err
		}
		base.Proxy = nil
		base.DialContext = dial
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	return &http.Client{
		Transport: newRetryTransport(base, opts.Retry, userAgent),
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}, nil
}

// socksDialer returns a DialContext function that connects through the
// SOCKS5 proxy at address.
func socksDialer(address string) (func(context.Context, string, string) (net.Conn, error), error) {
	if !isValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	// Dialers without context support are raced against ctx.
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		ch := make(chan dialResult, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			ch <- dialResult{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			go func() {
				if r := <-ch; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}, nil
}

// isValidProxyAddress checks the "host:port" form with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
