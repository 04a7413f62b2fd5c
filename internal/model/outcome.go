package model

// OutcomeKind classifies the result of checking one URL.
type OutcomeKind int

const (
	// OutcomeReachable means the URL answered with a non-error status.
	OutcomeReachable OutcomeKind = iota

	// OutcomeBroken means the URL answered with an error status or could not
	// be reached at all. Outcome.Reason says why.
	OutcomeBroken

	// OutcomeExcluded means the URL was listed in the exclusion set and was
	// never checked.
	OutcomeExcluded

	// OutcomeBlacklisted means the URL host matched a blacklist rule and the
	// URL is treated as reachable without a network call.
	OutcomeBlacklisted
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReachable:
		return "reachable"
	case OutcomeBroken:
		return "broken"
	case OutcomeExcluded:
		return "excluded"
	case OutcomeBlacklisted:
		return "blacklisted"
	default:
		return "unknown"
	}
}

// Outcome is the result of checking one URL at one point in time.
// Outcomes are transient; they may be cached for the duration of a run but
// are never persisted.
type Outcome struct {
	// Kind is the classification of the result.
	Kind OutcomeKind

	// Reason describes why a URL is broken, e.g. "HTTP 404" or "timeout".
	// Empty for every kind except OutcomeBroken.
	Reason string

	// StatusCode is the last HTTP status received, or 0 when the request
	// never produced a response.
	StatusCode int
}

// Reachable reports whether the outcome counts as a working link.
// Blacklisted URLs count as reachable.
func (o Outcome) Reachable() bool {
	return o.Kind == OutcomeReachable || o.Kind == OutcomeBlacklisted
}

// Reachable returns a reachable outcome for the given status code.
func Reachable(statusCode int) Outcome {
	return Outcome{Kind: OutcomeReachable, StatusCode: statusCode}
}

// Broken returns a broken outcome with the given reason and status code.
func Broken(reason string, statusCode int) Outcome {
	return Outcome{Kind: OutcomeBroken, Reason: reason, StatusCode: statusCode}
}

// Blacklisted returns the outcome used for URLs bypassed by the blacklist.
func Blacklisted() Outcome {
	return Outcome{Kind: OutcomeBlacklisted}
}

// Excluded returns the outcome used for URLs found in the exclusion set.
func Excluded() Outcome {
	return Outcome{Kind: OutcomeExcluded}
}
