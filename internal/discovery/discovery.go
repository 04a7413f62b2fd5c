// Package discovery resolves a root path into the documents to scan.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/linkcheck/internal/model"
)

var (
	// ErrRootNotFound is returned when the root path does not exist.
	ErrRootNotFound = errors.New("root path does not exist")

	// ErrUnsupportedDocument is returned when the root is a file whose
	// extension is not a recognized document type.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// DefaultExtensions are the document extensions scanned when none are
// configured.
func DefaultExtensions() []string {
	return []string{".adoc", ".asciidoc", ".asc", ".md", ".markdown", ".html", ".htm"}
}

// Finder lists the documents below a root path.
type Finder struct {
	root       string
	extensions map[string]struct{}
	skipHidden bool
}

// Option configures a Finder.
type Option func(*Finder)

// WithExtensions replaces the recognized extensions. Entries without a
// leading dot get one. An empty list keeps the defaults.
func WithExtensions(exts []string) Option {
	return func(f *Finder) {
		if len(exts) == 0 {
			return
		}
		f.extensions = extensionSet(exts)
	}
}

// WithHidden makes the finder descend into hidden directories such as .git.
func WithHidden() Option {
	return func(f *Finder) {
		f.skipHidden = false
	}
}

// NewFinder returns a Finder for root.
func NewFinder(root string, opts ...Option) *Finder {
	f := &Finder{
		root:       root,
		extensions: extensionSet(DefaultExtensions()),
		skipHidden: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// Root returns the configured root path.
func (f *Finder) Root() string {
	return f.root
}

// Supported reports whether path has a recognized extension.
func (f *Finder) Supported(path string) bool {
	_, ok := f.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Documents returns the documents to scan in lexical order.
//
// A file root is returned as is when its extension is recognized and yields
// ErrUnsupportedDocument otherwise. A directory root is walked recursively;
// unreadable subdirectories are skipped. A missing root yields
// ErrRootNotFound.
func (f *Finder) Documents(ctx context.Context) ([]model.Document, error) {
	info, err := os.Stat(f.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, f.root)
		}
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}

	if !info.IsDir() {
		if !f.Supported(f.root) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, f.root)
		}
		return []model.Document{model.NewDocument(f.root)}, nil
	}

	var docs []model.Document
	err = filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && path != f.root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != f.root && f.skipHidden && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && f.Supported(path) {
			docs = append(docs, model.NewDocument(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", f.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })
	return docs, nil
}
