package extract

import (
	"bytes"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"github.com/nao1215/linkcheck/internal/link"
)

var (
	// urlPattern matches explicit http(s) URLs. The optional "link:" macro
	// prefix is consumed but kept out of the captured URL. Brackets end a
	// match so that AsciiDoc link text is not swallowed.
	urlPattern = regexp.MustCompile("(?i)(?:link:)?(https?://[^\\s<>\"'\\[\\]{}|\\\\^`]+)")

	// videoPattern matches the video macro with an 11 character id.
	videoPattern = regexp.MustCompile(`(?m)video::([A-Za-z0-9_-]{11})(?:\[|\s|$)`)
)

// Extractor reads documents and returns the canonical URLs they reference.
// An Extractor is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for read warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract returns the sorted set of canonical URLs in content.
func Extract(content []byte, kind Kind) []string {
	return defaultExtractor.Extract(content, kind)
}

// File reads the document at path and extracts its links.
// A read failure is logged as a warning and yields no links.
func (e *Extractor) File(path string) []string {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from document discovery
	if err != nil {
		e.logger.Warn("cannot read document, skipping its links", "path", path, "error", err)
		return []string{}
	}
	return e.Extract(content, KindOf(path))
}

// Extract returns the sorted set of canonical URLs in content.
func (e *Extractor) Extract(content []byte, kind Kind) []string {
	src := decode(content)
	set := make(map[string]struct{})
	add := func(raw string) {
		u := link.Canonicalize(raw)
		if u == "" || !link.IsValid(u) {
			return
		}
		set[u] = struct{}{}
	}

	for _, m := range urlPattern.FindAllSubmatch(src, -1) {
		add(string(m[1]))
	}
	for _, m := range videoPattern.FindAllSubmatch(src, -1) {
		add(link.VideoURL(string(m[1])))
	}

	switch kind {
	case KindMarkdown:
		markdownLinks(src, add)
	case KindHTML:
		htmlLinks(src, add)
	case KindText:
	}

	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// markdownLinks walks the Markdown AST and reports link, image and autolink
// destinations.
func markdownLinks(src []byte, add func(string)) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			add(string(node.Destination))
		case *ast.Image:
			add(string(node.Destination))
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				add(string(node.URL(src)))
			}
		}
		return ast.WalkContinue, nil
	})
}

// htmlAttrs are the attributes that carry link destinations.
var htmlAttrs = map[string]struct{}{
	"href":   {},
	"src":    {},
	"poster": {},
	"cite":   {},
}

// htmlLinks tokenizes HTML and reports the values of link-carrying attributes.
func htmlLinks(src []byte, add func(string)) {
	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if _, ok := htmlAttrs[string(key)]; ok {
					add(string(val))
				}
			}
		default:
		}
	}
}
