package link

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// ExclusionSet is a read-only set of canonical URLs that are never checked.
// It is safe for concurrent reads once built.
type ExclusionSet struct {
	urls map[string]struct{}
}

// NewExclusionSet builds a set from the given URLs, canonicalizing each one.
func NewExclusionSet(urls ...string) *ExclusionSet {
	s := &ExclusionSet{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.add(u)
	}
	return s
}

func (s *ExclusionSet) add(raw string) {
	key := Canonicalize(raw)
	if key == "" {
		return
	}
	s.urls[key] = struct{}{}
}

// Contains reports whether the canonical form of u is excluded.
// A nil set contains nothing.
func (s *ExclusionSet) Contains(u string) bool {
	if s == nil {
		return false
	}
	_, ok := s.urls[Canonicalize(u)]
	return ok
}

// Len returns the number of entries in the set.
func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}

// URLs returns the entries in sorted order.
func (s *ExclusionSet) URLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.urls))
	for u := range s.urls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ParseExclusions reads one URL per line from r.
// Blank lines and lines starting with '#' are ignored.
func ParseExclusions(r io.Reader) (*ExclusionSet, error) {
	s := NewExclusionSet()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.add(line)
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("failed to read exclusion list: %w", err)
	}
	return s, nil
}

// LoadExclusions reads the exclusion file at path.
// An empty path yields an empty set. A read failure is logged as a warning
// and also yields an empty set; it never stops a run.
func LoadExclusions(path string, logger *slog.Logger) *ExclusionSet {
	if path == "" {
		return NewExclusionSet()
	}
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		logger.Warn("cannot read exclusion file, continuing without exclusions",
			"path", path, "error", err)
		return NewExclusionSet()
	}
	defer func() { _ = f.Close() }()

	s, err := ParseExclusions(f)
	if err != nil {
		logger.Warn("cannot read exclusion file, continuing without exclusions",
			"path", path, "error", err)
		return NewExclusionSet()
	}
	logger.Debug("loaded exclusions", "path", path, "count", s.Len())
	return s
}
