package ndjson

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends one JSON document per line. Each record is written with a
// single Write call so concurrent writers never interleave lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
	n  int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append opens path for appending, creating parent directories.
func Append(path string) (*Writer, error) {
	return open(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

// Create truncates path.
func Create(path string) (*Writer, error) {
	return open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

func open(path string, flag int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{w: f, c: f}, nil
}

func (w *Writer) Write(v any) error {
	if w == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int64 {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.w = nil
	if w.c == nil {
		return nil
	}
	err := w.c.Close()
	w.c = nil
	return err
}
