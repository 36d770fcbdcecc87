package ndjson

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	N int `json:"n"`
}

func writeRecs(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "recs.ndjson")
	w, err := Append(path)
	require.NoError(t, err)
	for i := range n {
		require.NoError(t, w.Write(rec{N: i}))
	}
	require.EqualValues(t, n, w.Count())
	require.NoError(t, w.Close())
	return path
}

func TestReadPagesThroughFile(t *testing.T) {
	path := writeRecs(t, 5)

	p1, err := Read[rec](path, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []rec{{0}, {1}}, p1.Items)
	assert.True(t, p1.HasMore())

	p2, err := Read[rec](path, p1.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []rec{{2}, {3}}, p2.Items)

	p3, err := Read[rec](path, p2.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []rec{{4}}, p3.Items)
	assert.False(t, p3.HasMore())

	p4, err := Read[rec](path, p3.NextCursor, 2)
	require.NoError(t, err)
	assert.Empty(t, p4.Items)
	assert.Equal(t, p3.NextCursor, p4.NextCursor)
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	p, err := Read[rec](filepath.Join(t.TempDir(), "nope.ndjson"), 7, 10)
	require.NoError(t, err)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.EqualValues(t, 7, p.NextCursor)
}

func TestReadMidLineSkipsToNextRecord(t *testing.T) {
	path := writeRecs(t, 3)
	p, err := Read[rec](path, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []rec{{1}, {2}}, p.Items)
}

func TestReadCursorPastEndClamps(t *testing.T) {
	path := writeRecs(t, 2)
	st, err := os.Stat(path)
	require.NoError(t, err)

	p, err := Read[rec](path, st.Size()+100, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, st.Size(), p.NextCursor)
}

func TestReadFilteredCountsKeptOnly(t *testing.T) {
	path := writeRecs(t, 10)
	odd := func(r rec) bool { return r.N%2 == 1 }

	p, err := ReadFiltered(path, 0, 3, odd)
	require.NoError(t, err)
	assert.Equal(t, []rec{{1}, {3}, {5}}, p.Items)

	p, err = ReadFiltered(path, p.NextCursor, 3, odd)
	require.NoError(t, err)
	assert.Equal(t, []rec{{7}, {9}}, p.Items)
	assert.False(t, p.HasMore())
}

func TestReadSkipsUndecodableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\nnot json\n{\"n\":2}\n"), 0o644))

	p, err := Read[rec](path, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []rec{{1}, {2}}, p.Items)
}

func TestWriterToStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(rec{N: 1}))
	require.NoError(t, w.Write(rec{N: 2}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Write(rec{N: 3}))

	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", buf.String())

	var nilW *Writer
	assert.NoError(t, nilW.Write(rec{}))
	assert.NoError(t, nilW.Close())
}

func TestCreateTruncates(t *testing.T) {
	path := writeRecs(t, 4)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(rec{N: 9}))
	require.NoError(t, w.Close())

	p, err := Read[rec](path, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []rec{{9}}, p.Items)
}
