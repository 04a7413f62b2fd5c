package model

import (
	"path/filepath"
	"strings"
)

// Document identifies one unit of input text by its absolute file path.
// A Document is created during discovery and never changes afterwards.
type Document string

// NewDocument returns the Document for path, made absolute when possible.
func NewDocument(path string) Document {
	if abs, err := filepath.Abs(path); err == nil {
		return Document(abs)
	}
	return Document(path)
}

// Path returns the file path of the document.
func (d Document) Path() string {
	return string(d)
}

// Ext returns the lower-cased file extension, including the leading dot.
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(string(d)))
}

// LinkReference is a normalized URL extracted from a Document.
// Several references may share the same URL; per-document duplicates are
// removed by the extractor and cross-document duplicates by the checker cache.
type LinkReference struct {
	// URL is the normalized URL string.
	URL string `json:"url"`

	// Document is the file the URL was found in.
	Document Document `json:"document"`
}
