package ndjson

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
)

const (
	DefaultLimit = 200
	MaxLimit     = 2000
)

// Page is one window of an NDJSON file. NextCursor is the byte offset just
// past the last line consumed; Size is the file size seen while reading.
type Page[T any] struct {
	Items      []T   `json:"items"`
	NextCursor int64 `json:"nextCursor"`
	Size       int64 `json:"-"`
}

func (p Page[T]) HasMore() bool { return p.NextCursor < p.Size }

func Read[T any](path string, cursor int64, limit int) (Page[T], error) {
	return ReadFiltered[T](path, cursor, limit, nil)
}

// ReadFiltered decodes up to limit kept records starting at the byte offset
// cursor. A cursor inside a line skips to the next line start. Lines that do
// not decode are consumed and dropped. keep == nil keeps everything.
func ReadFiltered[T any](path string, cursor int64, limit int, keep func(T) bool) (Page[T], error) {
	limit = clampLimit(limit)
	if cursor < 0 {
		cursor = 0
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Page[T]{Items: []T{}, NextCursor: cursor}, nil
		}
		return Page[T]{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Page[T]{}, err
	}
	size := st.Size()
	cursor = min(cursor, size)

	aligned, err := atLineStart(f, cursor)
	if err != nil {
		return Page[T]{}, err
	}
	if _, err := f.Seek(cursor, io.SeekStart); err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: []T{}, NextCursor: cursor, Size: size}
	r := bufio.NewReader(f)

	if !aligned {
		n, err := skipLine(r)
		page.NextCursor += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return page, nil
			}
			return Page[T]{}, err
		}
	}

	for len(page.Items) < limit {
		line, err := r.ReadBytes('\n')
		page.NextCursor += int64(len(line))
		if len(line) > 0 {
			var v T
			if json.Unmarshal(line, &v) == nil && (keep == nil || keep(v)) {
				page.Items = append(page.Items, v)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Page[T]{}, err
		}
	}
	return page, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

func atLineStart(f *os.File, cursor int64) (bool, error) {
	if cursor == 0 {
		return true, nil
	}
	var prev [1]byte
	if _, err := f.ReadAt(prev[:], cursor-1); err != nil {
		return false, err
	}
	return prev[0] == '\n', nil
}

func skipLine(r *bufio.Reader) (int64, error) {
	junk, err := r.ReadBytes('\n')
	return int64(len(junk)), err
}
