package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/richkmeli/portscanner/internal/result"
)

// WriteFileAtomic renders sink in the given format and writes it to path
// atomically: the render lands in a temp file in path's directory, is
// fsynced, then renamed over path. A reader of path never observes a
// partially written result file.
func WriteFileAtomic(sink *result.Sink, target string, elapsed time.Duration, format, path string) error {
	var buf bytes.Buffer
	if err := Write(&buf, sink, target, elapsed, format); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output: mkdir %s: %w", dir, err)
		}
	}

	tmpF, err := os.CreateTemp(dir, "portscan-*.tmp")
	if err != nil {
		return fmt.Errorf("output: create temp file: %w", err)
	}
	tmpPath := tmpF.Name()

	cleanup := func() {
		_ = tmpF.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmpF.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("output: write temp file: %w", err)
	}
	if err := tmpF.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("output: sync temp file: %w", err)
	}
	if err := tmpF.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("output: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("output: rename temp file into place: %w", err)
	}
	return nil
}
