package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// BrokenLink is a URL that failed its reachability check.
// Its JSON form is the two-element array ["url", "reason"].
type BrokenLink struct {
	URL    string
	Reason string
}

// MarshalJSON encodes the link as ["url", "reason"]. HTML characters are
// left unescaped; an outer encoder escapes them again if it is configured to.
func (b BrokenLink) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([2]string{b.URL, b.Reason}); err != nil {
		return nil, fmt.Errorf("failed to encode broken link: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the ["url", "reason"] array form.
func (b *BrokenLink) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode broken link: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("broken link must have 2 elements, got %d", len(pair))
	}
	b.URL = pair[0]
	b.Reason = pair[1]
	return nil
}

// Report maps a document path to the broken links found in it.
// A document appears only if it has at least one broken link.
type Report map[string][]BrokenLink

// Documents returns the document paths of the report in sorted order.
func (r Report) Documents() []string {
	docs := make([]string, 0, len(r))
	for doc := range r {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	return docs
}

// Count returns the total number of broken links across all documents.
func (r Report) Count() int {
	n := 0
	for _, links := range r {
		n += len(links)
	}
	return n
}

// Empty reports whether no broken link was recorded.
func (r Report) Empty() bool {
	return r.Count() == 0
}

// Clone returns a deep copy of the report with every link list sorted by URL.
// Documents without links are dropped.
func (r Report) Clone() Report {
	out := make(Report, len(r))
	for doc, links := range r {
		if len(links) == 0 {
			continue
		}
		cp := make([]BrokenLink, len(links))
		copy(cp, links)
		SortLinks(cp)
		out[doc] = cp
	}
	return out
}

// SortLinks orders links by URL, then by reason.
func SortLinks(links []BrokenLink) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].URL != links[j].URL {
			return links[i].URL < links[j].URL
		}
		return links[i].Reason < links[j].Reason
	})
}
