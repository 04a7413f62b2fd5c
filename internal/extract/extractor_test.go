package extract

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractAsciiDoc(t *testing.T) {
	t.Parallel()

	t.Run("link macro and video macro", func(t *testing.T) {
		t.Parallel()
		content := "See link:https://example.com[] for details.\n\nvideo::dQw4w9WgXcQ[]\n"
		got := Extract([]byte(content), KindText)
		want := []string{"https://example.com", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
		assertLinks(t, got, want)
	})

	t.Run("deduplicates by normalized value", func(t *testing.T) {
		t.Parallel()
		content := strings.Join([]string{
			"https://example.com/a",
			"https://example.com/a/",
			"link:https://example.com/a?ref=1[docs]",
			"(https://example.com/a).",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"video::dQw4w9WgXcQ[]",
		}, "\n")
		got := Extract([]byte(content), KindText)
		want := []string{"https://example.com/a", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
		assertLinks(t, got, want)
	})

	t.Run("ignores other schemes", func(t *testing.T) {
		t.Parallel()
		content := "ftp://files.test/a mailto:a@b.test link:relative/page.html[]"
		if got := Extract([]byte(content), KindText); len(got) != 0 {
			t.Errorf("expected no links, got %v", got)
		}
	})

	t.Run("video id must be 11 characters", func(t *testing.T) {
		t.Parallel()
		content := "video::short[]\nvideo::dQw4w9WgXcQextra[]\n"
		if got := Extract([]byte(content), KindText); len(got) != 0 {
			t.Errorf("expected no links, got %v", got)
		}
	})

	t.Run("accepts ip hosts with port", func(t *testing.T) {
		t.Parallel()
		got := Extract([]byte("http://127.0.0.1:8080/health"), KindText)
		assertLinks(t, got, []string{"http://127.0.0.1:8080/health"})
	})
}

func TestExtractMarkdown(t *testing.T) {
	t.Parallel()

	content := strings.Join([]string{
		"# Title",
		"",
		"A [link](https://md.test/page \"title\") and ![img](https://img.test/a.png).",
		"",
		"Autolink <https://auto.test/x> and relative [rel](./other.md).",
		"",
		"[ref]: https://ref.test/target",
		"",
		"Use the [ref] link.",
	}, "\n")

	got := Extract([]byte(content), KindMarkdown)
	want := []string{
		"https://auto.test/x",
		"https://img.test/a.png",
		"https://md.test/page",
		"https://ref.test/target",
	}
	assertLinks(t, got, want)
}

func TestExtractHTML(t *testing.T) {
	t.Parallel()

	content := `<!doctype html>
<html><head><link rel="stylesheet" href="https://cdn.test/site.css"></head>
<body>
<a href="https://html.test/a?x=1&amp;y=2">a</a>
<img src='https://html.test/logo.png'/>
<a href="#top">top</a>
<a href="javascript:void(0)">js</a>
<p>Bare https://text.test/b in prose.</p>
</body></html>`

	got := Extract([]byte(content), KindHTML)
	want := []string{
		"https://cdn.test/site.css",
		"https://html.test/a",
		"https://html.test/logo.png",
		"https://text.test/b",
	}
	assertLinks(t, got, want)
}

func TestExtractDecoding(t *testing.T) {
	t.Parallel()

	t.Run("utf16 with bom", func(t *testing.T) {
		t.Parallel()
		src := "link:https://utf16.test/a[]"
		buf := []byte{0xFF, 0xFE}
		for _, r := range src {
			buf = append(buf, byte(r), 0)
		}
		assertLinks(t, Extract(buf, KindText), []string{"https://utf16.test/a"})
	})

	t.Run("invalid bytes do not fail", func(t *testing.T) {
		t.Parallel()
		buf := append([]byte{0xC3, 0x28, 0xFF, ' '}, []byte("https://ok.test/x")...)
		assertLinks(t, Extract(buf, KindText), []string{"https://ok.test/x"})
	})

	t.Run("utf8 bom is stripped", func(t *testing.T) {
		t.Parallel()
		buf := append([]byte{0xEF, 0xBB, 0xBF}, []byte("https://bom.test")...)
		assertLinks(t, Extract(buf, KindText), []string{"https://bom.test"})
	})
}

func TestExtractorFile(t *testing.T) {
	t.Parallel()

	t.Run("reads by extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "page.md")
		if err := os.WriteFile(path, []byte("[x](https://file.test/y)"), 0o600); err != nil {
			t.Fatal(err)
		}
		assertLinks(t, New().File(path), []string{"https://file.test/y"})
	})

	t.Run("missing file logs and returns empty", func(t *testing.T) {
		t.Parallel()
		var logs bytes.Buffer
		e := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		got := e.File(filepath.Join(t.TempDir(), "missing.adoc"))
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil result, got %v", got)
		}
		if !strings.Contains(logs.String(), "cannot read document") {
			t.Errorf("expected warning in log, got %q", logs.String())
		}
	})
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := map[string]Kind{
		"a.adoc":     KindText,
		"a.MD":       KindMarkdown,
		"a.markdown": KindMarkdown,
		"a.htm":      KindHTML,
		"a.html":     KindHTML,
		"a":          KindText,
	}
	for path, want := range tests {
		if got := KindOf(path); got != want {
			t.Errorf("KindOf(%q) = %v, expected %v", path, got, want)
		}
	}
}

func assertLinks(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("links mismatch\n got: %v\nwant: %v", got, want)
	}
}
