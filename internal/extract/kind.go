package extract

import (
	"path/filepath"
	"strings"
)

// Kind is the markup language of a document.
type Kind int

const (
	// KindText covers AsciiDoc and any other plain markup. Only the URL and
	// video patterns apply.
	KindText Kind = iota
	// KindMarkdown adds destinations from the Markdown AST.
	KindMarkdown
	// KindHTML adds href and src attribute values.
	KindHTML
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindHTML:
		return "html"
	default:
		return "text"
	}
}

// KindOf guesses the kind of a document from its file extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown
	case ".html", ".htm", ".xhtml":
		return KindHTML
	default:
		return KindText
	}
}
