package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Accepted field names, in priority order. Only the first present, non-null
// key is consulted.
var (
	TotalAliases      = []string{"total", "totalCount", "totalItems", "countTotal", "totalFindings", "findingsTotal", "total_results"}
	MetaTotalAliases  = []string{"totalFindings", "findingsTotal", "total"}
	ItemsAliases      = []string{"items", "results"}
	ScanItemsAliases  = []string{"items", "scans", "results"}
	NextCursorAliases = []string{"nextCursor", "next", "cursorNext"}
)

type Fields map[string]json.RawMessage

func (f Fields) First(keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		if len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		return v, true
	}
	return nil, false
}

// Int returns the first alias as an integer; nil when absent or not numeric.
func (f Fields) Int(keys []string) *int64 {
	raw, ok := f.First(keys)
	if !ok {
		return nil
	}
	return parseInt(raw)
}

// Bool treats an empty or null value as absent.
func (f Fields) Bool(key string) *bool {
	raw, ok := f.First([]string{key})
	if !ok {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}

func parseInt(raw json.RawMessage) *int64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return &v
		}
		if f, err := n.Float64(); err == nil {
			v := int64(f)
			return &v
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
