// Package atomicfile replaces files through a temp file and rename so a
// crash never leaves a half-written result or channel table behind.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Writer struct {
	path    string
	tmpPath string
	file    *os.File
}

// NewWriter creates a temporary file next to path. Nothing is visible at
// path until Commit.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".playlistomatic-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &Writer{
		path:    path,
		tmpPath: tmpFile.Name(),
		file:    tmpFile,
	}, nil
}

func (w *Writer) Write(p []byte) (n int, err error) {
	return w.file.Write(p)
}

func (w *Writer) Commit() error {
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(w.tmpPath, 0644); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (w *Writer) Abort() error {
	w.file.Close()
	return os.Remove(w.tmpPath)
}

// WriteFile streams fill into a new temp file and commits it over path.
func WriteFile(path string, fill func(io.Writer) error) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := fill(w); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}
