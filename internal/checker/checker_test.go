package checker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkcheck/internal/link"
	"github.com/nao1215/linkcheck/internal/model"
)

// newTestClient returns a probe client with a fast retry policy.
func newTestClient(t *testing.T, retries int, opts ...func(*ClientOptions)) *http.Client {
	t.Helper()
	co := ClientOptions{
		Retry: RetryPolicy{
			Count:    retries,
			Backoff:  time.Millisecond,
			Statuses: DefaultRetryStatuses(),
		},
	}
	for _, o := range opts {
		o(&co)
	}
	client, err := NewHTTPClient(co)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCheckerProbe(t *testing.T) {
	t.Parallel()

	t.Run("head success is reachable", func(t *testing.T) {
		t.Parallel()
		srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		c := New(WithHTTPClient(newTestClient(t, 0)))

		o := c.Check(context.Background(), srv.URL+"/ok")
		if o.Kind != model.OutcomeReachable || o.StatusCode != http.StatusOK {
			t.Errorf("unexpected outcome %+v", o)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request, got %d", hits.Load())
		}
	})

	t.Run("falls back to get when head is rejected", func(t *testing.T) {
		t.Parallel()
		srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		c := New(WithHTTPClient(newTestClient(t, 0)))

		if !c.Reachable(context.Background(), srv.URL) {
			t.Error("expected URL to be reachable through GET")
		}
		if hits.Load() != 2 {
			t.Errorf("expected HEAD and GET, got %d requests", hits.Load())
		}
	})

	t.Run("error status on both methods is broken", func(t *testing.T) {
		t.Parallel()
		srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		c := New(WithHTTPClient(newTestClient(t, 0)))

		o := c.Check(context.Background(), srv.URL+"/missing")
		if o.Kind != model.OutcomeBroken || o.Reason != "HTTP 404" || o.StatusCode != 404 {
			t.Errorf("unexpected outcome %+v", o)
		}
	})

	t.Run("sends user agent", func(t *testing.T) {
		t.Parallel()
		var got atomic.Value
		srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
			got.Store(r.UserAgent())
			w.WriteHeader(http.StatusOK)
		})
		client := newTestClient(t, 0, func(o *ClientOptions) { o.UserAgent = "linkcheck-test/1.0" })
		c := New(WithHTTPClient(client))

		c.Check(context.Background(), srv.URL)
		if ua, _ := got.Load().(string); ua != "linkcheck-test/1.0" {
			t.Errorf("got user agent %q", ua)
		}
	})
}

func TestCheckerBlacklist(t *testing.T) {
	t.Parallel()

	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	// httptest listens on 127.0.0.1.
	c := New(
		WithHTTPClient(newTestClient(t, 0)),
		WithBlacklist(link.NewBlacklist("127.0.0.1")),
	)

	o := c.Check(context.Background(), srv.URL+"/gone")
	if o.Kind != model.OutcomeBlacklisted {
		t.Errorf("expected blacklisted outcome, got %+v", o)
	}
	if !o.Reachable() {
		t.Error("expected blacklisted outcome to count as reachable")
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network call, got %d", hits.Load())
	}
}

func TestCheckerSingleProbePerKey(t *testing.T) {
	t.Parallel()

	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	c := New(WithHTTPClient(newTestClient(t, 0)))

	const workers = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]bool, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i] = c.Reachable(context.Background(), srv.URL+"/shared")
		}()
	}
	close(start)
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("expected exactly 1 probe, got %d", hits.Load())
	}
	for i, ok := range results {
		if !ok {
			t.Errorf("worker %d saw unreachable", i)
		}
	}
	if c.Cache().Len() != 1 {
		t.Errorf("expected 1 cache entry, got %d", c.Cache().Len())
	}
}

func TestCheckerCacheKey(t *testing.T) {
	t.Parallel()

	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	cache := NewCache(16)
	client := newTestClient(t, 0)

	a := New(WithHTTPClient(client), WithCache(cache), WithTimeout(time.Second))
	b := New(WithHTTPClient(client), WithCache(cache), WithTimeout(time.Second))
	other := New(WithHTTPClient(client), WithCache(cache), WithTimeout(2*time.Second))

	a.Check(context.Background(), srv.URL)
	b.Check(context.Background(), srv.URL)
	if hits.Load() != 1 {
		t.Errorf("expected checkers with equal settings to share a probe, got %d", hits.Load())
	}

	other.Check(context.Background(), srv.URL)
	if hits.Load() != 2 {
		t.Errorf("expected a different timeout to probe again, got %d", hits.Load())
	}
}

func TestCheckerRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers after transient errors", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		c := New(WithHTTPClient(newTestClient(t, 3)))

		if !c.Reachable(context.Background(), srv.URL) {
			t.Error("expected reachable after retries")
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("gives up after the configured count", func(t *testing.T) {
		t.Parallel()
		srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		c := New(WithHTTPClient(newTestClient(t, 1)))

		o := c.Check(context.Background(), srv.URL)
		if o.Reason != "HTTP 502" {
			t.Errorf("unexpected outcome %+v", o)
		}
		// Two attempts for HEAD, two for GET.
		if hits.Load() != 4 {
			t.Errorf("expected 4 requests, got %d", hits.Load())
		}
	})

	t.Run("does not retry other statuses", func(t *testing.T) {
		t.Parallel()
		srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusGone)
		})
		c := New(WithHTTPClient(newTestClient(t, 3)))

		c.Check(context.Background(), srv.URL)
		if hits.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", hits.Load())
		}
	})
}

func TestCheckerFailureClasses(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			w.WriteHeader(http.StatusOK)
		})
		c := New(WithHTTPClient(newTestClient(t, 0)), WithTimeout(50*time.Millisecond))

		o := c.Check(context.Background(), srv.URL)
		if o.Kind != model.OutcomeBroken || o.Reason != ReasonTimeout {
			t.Errorf("unexpected outcome %+v", o)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		c := New(WithHTTPClient(newTestClient(t, 0)))
		o := c.Check(context.Background(), "http://"+addr+"/")
		if o.Reason != ReasonRefused {
			t.Errorf("unexpected outcome %+v", o)
		}
	})

	t.Run("too many redirects", func(t *testing.T) {
		t.Parallel()
		srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		})
		client := newTestClient(t, 0, func(o *ClientOptions) { o.MaxRedirects = 3 })
		c := New(WithHTTPClient(client))

		o := c.Check(context.Background(), srv.URL+"/loop")
		if o.Reason != ReasonTooManyRedirects {
			t.Errorf("unexpected outcome %+v", o)
		}
	})

	t.Run("tls verification", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		strict := New(WithHTTPClient(newTestClient(t, 0)))
		if o := strict.Check(context.Background(), srv.URL); o.Reason != ReasonTLS {
			t.Errorf("unexpected outcome %+v", o)
		}

		insecure := New(WithHTTPClient(newTestClient(t, 0, func(o *ClientOptions) { o.Insecure = true })))
		if !insecure.Reachable(context.Background(), srv.URL) {
			t.Error("expected insecure client to reach self-signed server")
		}
	})

	t.Run("cancelled outcome is not cached", func(t *testing.T) {
		t.Parallel()
		srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		c := New(WithHTTPClient(newTestClient(t, 0)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if c.Reachable(ctx, srv.URL) {
			t.Error("expected cancelled check to fail")
		}
		if c.Cache().Len() != 0 {
			t.Error("expected cancelled outcome not to be cached")
		}
		if !c.Reachable(context.Background(), srv.URL) {
			t.Error("expected later check to succeed")
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request, got %d", hits.Load())
		}
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"dns not found", &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, ReasonDNS},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "slow.test", IsTimeout: true}, ReasonTimeout},
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
		{"redirects", ErrTooManyRedirects, ReasonTooManyRedirects},
		{"invalid request", errInvalidRequest, ReasonInvalidRequest},
		{"other", errors.New("connection reset by peer"), ReasonConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, expected %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClientProxy(t *testing.T) {
	t.Parallel()

	t.Run("rejects malformed address", func(t *testing.T) {
		t.Parallel()
		for _, addr := range []string{"127.0.0.1", ":9050", "127.0.0.1:0", "127.0.0.1:70000", "host:abc"} {
			if _, err := NewHTTPClient(ClientOptions{ProxyAddress: addr}); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("address %q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})

	t.Run("accepts host and port", func(t *testing.T) {
		t.Parallel()
		client, err := NewHTTPClient(ClientOptions{ProxyAddress: "127.0.0.1:1080"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil {
			t.Fatal("expected client")
		}
	})
}

func TestCacheLRU(t *testing.T) {
	t.Parallel()

	cache := NewCache(2)
	k1 := Key{URL: "https://a.test"}
	k2 := Key{URL: "https://b.test"}
	k3 := Key{URL: "https://c.test"}

	cache.Add(k1, model.Reachable(200))
	cache.Add(k2, model.Broken("HTTP 404", 404))
	if _, ok := cache.Get(k1); !ok {
		t.Fatal("expected k1 to be cached")
	}
	cache.Add(k3, model.Reachable(200))

	if _, ok := cache.Get(k2); ok {
		t.Error("expected least recently used k2 to be evicted")
	}
	if _, ok := cache.Get(k1); !ok {
		t.Error("expected k1 to survive")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cache.Len())
	}

	calls := 0
	got := cache.GetOrCompute(k3, func() (model.Outcome, bool) {
		calls++
		return model.Outcome{}, true
	})
	if calls != 0 || got.StatusCode != 200 {
		t.Errorf("expected cached outcome without compute, calls=%d got=%+v", calls, got)
	}
	if s := cache.Stats(); s.Hits != 1 || s.Misses != 0 {
		t.Errorf("unexpected stats %+v", s)
	}

	if NewCache(0).capacity != DefaultCacheSize {
		t.Error("expected default capacity")
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{Backoff: 500 * time.Millisecond}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}
	for n, w := range want {
		if got := p.backoff(n); got != w {
			t.Errorf("backoff(%d) = %v, expected %v", n, got, w)
		}
	}
	if got := p.backoff(20); got != maxRetryWait {
		t.Errorf("expected backoff to be capped, got %v", got)
	}
}
