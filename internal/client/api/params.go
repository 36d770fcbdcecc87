package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Pusher91/truderwatch/internal/domain"
)

func RequireScanID(raw string) (string, *APIError) {
	id := strings.TrimSpace(raw)
	if !domain.IsValidScanID(id) {
		return "", ValidationError(map[string]string{
			"scanId": "must be a 32-char lowercase hex id",
		})
	}
	return id, nil
}

type ScanIDBody struct {
	ScanID string `json:"scanId"`
}

// CursorLimitQuery builds the mandatory part of every paged request.
func CursorLimitQuery(scanID string, cursor domain.Cursor, limit int) url.Values {
	if limit <= 0 {
		limit = 200
	}
	q := url.Values{}
	q.Set("scanId", scanID)
	q.Set("cursor", cursor.OrFirst().String())
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// FindingsQueryValues appends the optional filter strings only when non-empty
// so unfiltered requests stay minimal.
func FindingsQueryValues(scanID string, cursor domain.Cursor, limit int, fq domain.FindingsQuery) url.Values {
	q := CursorLimitQuery(scanID, cursor, limit)
	setIf := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	setIf("q", fq.Q)
	setIf("statusInclude", fq.StatusInclude)
	setIf("statusExclude", fq.StatusExclude)
	setIf("lengthInclude", fq.LengthInclude)
	setIf("lengthExclude", fq.LengthExclude)
	return q
}
