package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("= Title\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFinderDocuments(t *testing.T) {
	t.Parallel()

	t.Run("walks directory recursively", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "b.adoc"))
		writeFile(t, filepath.Join(root, "a", "guide.md"))
		writeFile(t, filepath.Join(root, "a", "page.HTML"))
		writeFile(t, filepath.Join(root, "notes.txt"))
		writeFile(t, filepath.Join(root, ".git", "hidden.adoc"))

		docs, err := NewFinder(root).Documents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			filepath.Join(root, "a", "guide.md"),
			filepath.Join(root, "a", "page.HTML"),
			filepath.Join(root, "b.adoc"),
		}
		if len(docs) != len(want) {
			t.Fatalf("got %v, expected %v", docs, want)
		}
		for i := range want {
			if docs[i].Path() != want[i] {
				t.Errorf("docs[%d] = %q, expected %q", i, docs[i], want[i])
			}
		}
	})

	t.Run("hidden directories on request", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".docs", "hidden.adoc"))

		docs, err := NewFinder(root, WithHidden()).Documents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 {
			t.Errorf("expected hidden document, got %v", docs)
		}
	})

	t.Run("custom extensions", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.adoc"))
		writeFile(t, filepath.Join(root, "b.txt"))

		docs, err := NewFinder(root, WithExtensions([]string{"txt"})).Documents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 || filepath.Base(docs[0].Path()) != "b.txt" {
			t.Errorf("unexpected documents %v", docs)
		}
	})

	t.Run("file root", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "single.adoc")
		writeFile(t, path)

		docs, err := NewFinder(path).Documents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 || docs[0].Path() != path {
			t.Errorf("unexpected documents %v", docs)
		}
	})

	t.Run("unsupported file root", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "notes.txt")
		writeFile(t, path)

		_, err := NewFinder(path).Documents(context.Background())
		if !errors.Is(err, ErrUnsupportedDocument) {
			t.Errorf("expected ErrUnsupportedDocument, got %v", err)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := NewFinder(filepath.Join(t.TempDir(), "nope")).Documents(context.Background())
		if !errors.Is(err, ErrRootNotFound) {
			t.Errorf("expected ErrRootNotFound, got %v", err)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()
		docs, err := NewFinder(t.TempDir()).Documents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected no documents, got %v", docs)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.adoc"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewFinder(root).Documents(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
