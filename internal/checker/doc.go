// Package checker decides whether a URL is reachable.
//
// A Checker short-circuits blacklisted hosts, then probes the URL with HEAD
// and falls back to GET when HEAD reports an error status. Transport failures
// never surface as Go errors; they become broken outcomes whose reason names
// the failure class ("timeout", "dns resolution failed", ...).
//
// Probes go through an http.Client built by NewHTTPClient. Its transport
// retries connect errors and configured status codes with exponential backoff,
// applies the per-call timeout to every attempt, and can route through a
// SOCKS5 proxy.
//
// Outcomes are memoized in a Cache: a fixed-capacity LRU keyed by
// (url, timeout, blacklist fingerprint). Concurrent checks of the same key
// share a single probe.
package checker
