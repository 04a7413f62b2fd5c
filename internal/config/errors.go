package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoOutput is returned when no report destination is configured.
	ErrNoOutput = errors.New("no output specified: use --output")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxWorkers is returned when the worker limit is not positive.
	ErrInvalidMaxWorkers = errors.New("invalid max workers: must be positive")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidRetryCount is returned when the retry count is negative.
	ErrInvalidRetryCount = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidRetryBackoff is returned when the retry backoff is negative.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff: must be non-negative")

	// ErrInvalidCacheSize is returned when the cache capacity is not positive.
	ErrInvalidCacheSize = errors.New("invalid cache size: must be positive")

	// ErrUnknownFormat is returned when the report format is not supported.
	ErrUnknownFormat = errors.New("unknown report format: use json, markdown or text")
)
