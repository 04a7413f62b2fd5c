package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/linkcheck/internal/model"
)

// Output formats accepted by NewWriter and FileSink.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatMarkdown, FormatText}
}

// NewWriter returns the writer for format. The JSON writer uses two-space
// indentation.
func NewWriter(output io.Writer, format string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatText, "txt":
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FileSink writes a run result to a file, creating parent directories.
// It implements the sink the runner hands the final result to.
type FileSink struct {
	path   string
	format string
}

// NewFileSink returns a sink writing format to path.
func NewFileSink(path, format string) *FileSink {
	return &FileSink{path: path, format: format}
}

// Path returns the destination file.
func (s *FileSink) Path() string {
	return s.path
}

// Write renders result and writes it to the sink's file, replacing any
// previous content.
func (s *FileSink) Write(result *model.RunResult) (int, error) {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path comes from user configuration
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := NewWriter(f, s.format)
	if err != nil {
		_ = f.Close()
		return 0, err
	}

	n, err := w.Write(result)
	if err != nil {
		_ = f.Close()
		return n, fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close output file: %w", err)
	}
	return n, nil
}
