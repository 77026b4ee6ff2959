package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"slack-summarizer/internal/summary"
)

// FileSink overwrites a local text file with the latest result.
type FileSink struct {
	path string
}

// NewFileSink writes to path, creating its directory on first save.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Save writes res.Text() to a temporary file and renames it over the target,
// so readers never see a partial file.
func (s *FileSink) Save(_ context.Context, res summary.Result) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".summary-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if _, err := tmp.WriteString(res.Text()); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error { return nil }
