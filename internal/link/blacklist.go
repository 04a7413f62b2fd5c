package link

import (
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/net/idna"
)

// Blacklist is an ordered list of domain rules. A URL whose host equals a
// rule, or is a subdomain of it, is treated as reachable without a probe.
// The zero value matches nothing. A Blacklist is immutable after creation.
type Blacklist struct {
	rules       []string
	fingerprint string
}

// NewBlacklist builds a blacklist from domain rules.
// Rules are folded to lower-case ASCII and deduplicated in first-seen order;
// empty rules are dropped.
func NewBlacklist(rules ...string) Blacklist {
	seen := make(map[string]struct{}, len(rules))
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		rule := foldRule(r)
		if rule == "" {
			continue
		}
		if _, ok := seen[rule]; ok {
			continue
		}
		seen[rule] = struct{}{}
		out = append(out, rule)
	}
	return Blacklist{rules: out, fingerprint: fingerprint(out)}
}

// Rules returns a copy of the folded rules in order.
func (b Blacklist) Rules() []string {
	out := make([]string, len(b.rules))
	copy(out, b.rules)
	return out
}

// Len returns the number of rules.
func (b Blacklist) Len() int {
	return len(b.rules)
}

// Fingerprint returns a stable digest of the rule list. Two blacklists with
// the same rules in the same order share a fingerprint.
func (b Blacklist) Fingerprint() string {
	if b.fingerprint == "" {
		return fingerprint(nil)
	}
	return b.fingerprint
}

// Match reports whether the host of rawURL equals a rule or ends with
// "." followed by a rule. Unparseable URLs and URLs without a host never match.
func (b Blacklist) Match(rawURL string) bool {
	if len(b.rules) == 0 {
		return false
	}
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, rule := range b.rules {
		if host == rule || strings.HasSuffix(host, "."+rule) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return foldHost(u.Hostname())
}

// foldRule accepts "example.com", ".example.com" and "*.example.com".
func foldRule(rule string) string {
	r := strings.TrimSpace(rule)
	r = strings.TrimPrefix(r, "*.")
	r = strings.TrimPrefix(r, ".")
	return foldHost(r)
}

func foldHost(host string) string {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	if h == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(h); err == nil {
		return ascii
	}
	return h
}

func fingerprint(rules []string) string {
	sum := sha3.Sum256([]byte(strings.Join(rules, "\n")))
	return hex.EncodeToString(sum[:])
}
