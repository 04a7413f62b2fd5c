package link

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// delimiters wrap URLs in prose and are stripped from both ends.
	delimiters = `"'<>`

	// trailingPunct is prose punctuation that is never part of a URL end.
	trailingPunct = ".,;:!?)]"

	// videoURLPrefix is the canonical watch URL for short video ids.
	videoURLPrefix = "https://www.youtube.com/watch?v="
)

// videoURLRe matches the canonical watch URL produced by VideoURL.
var videoURLRe = regexp.MustCompile(`^https://www\.youtube\.com/watch\?v=[A-Za-z0-9_-]{11}$`)

// Normalize returns the comparison key for a raw URL token.
//
// The query and fragment are dropped, then prose delimiters, trailing
// punctuation and trailing slashes are stripped until the value is stable.
// Normalize is pure and idempotent.
func Normalize(raw string) string {
	s := raw
	if i := strings.IndexAny(s, "#?"); i >= 0 {
		s = s[:i]
	}
	for {
		prev := s
		s = strings.Trim(s, delimiters)
		s = strings.TrimRight(s, trailingPunct)
		s = strings.TrimRight(s, "/")
		if s == prev {
			return s
		}
	}
}

// IsValid reports whether u has an http or https scheme and a host.
// Every other scheme, and relative references, are invalid.
func IsValid(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return parsed.Hostname() != ""
}

// VideoURL rewrites an 11 character short video id into its watch URL.
func VideoURL(id string) string {
	return videoURLPrefix + id
}

// IsVideoURL reports whether u is a canonical watch URL built by VideoURL.
func IsVideoURL(u string) bool {
	return videoURLRe.MatchString(u)
}

// Canonicalize returns the key used for both extracted links and exclusion
// entries. Canonical video URLs keep their id parameter; every other value
// goes through Normalize.
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if candidate := strings.TrimRight(strings.Trim(trimmed, delimiters), trailingPunct); IsVideoURL(candidate) {
		return candidate
	}
	return Normalize(trimmed)
}
