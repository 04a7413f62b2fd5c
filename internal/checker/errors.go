package checker

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrTooManyRedirects is returned by the client when a URL redirects more
	// often than the configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// errInvalidRequest marks URLs that cannot be turned into a request.
	errInvalidRequest = errors.New("invalid request")
)

// Failure classes recorded as the reason of a broken outcome.
const (
	ReasonTimeout          = "timeout"
	ReasonDNS              = "dns resolution failed"
	ReasonRefused          = "connection refused"
	ReasonTLS              = "tls error"
	ReasonTooManyRedirects = "too many redirects"
	ReasonInvalidRequest   = "invalid request"
	ReasonConnection       = "connection error"
)
