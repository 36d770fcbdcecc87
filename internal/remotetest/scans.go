package remotetest

import (
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/ndjson"
)

// stampFormat is fixed width so startedAt sorts lexically.
const stampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// NewScanID returns a fresh 32-char hex scan id.
func NewScanID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewScan registers a scan over targets with a fresh id and returns its
// metadata. Every target starts queued.
func (s *Server) NewScan(status domain.ScanStatus, active bool, targets ...string) domain.Meta {
	meta := domain.Meta{
		ID:        NewScanID(),
		StartedAt: time.Now().UTC().Format(stampFormat),
		Targets:   targets,
		Status:    status,
		Hosts:     make(map[string]domain.HostMeta, len(targets)),
	}
	for _, t := range targets {
		meta.Hosts[t] = domain.HostMeta{Target: t, Status: domain.HostStatusQueued}
	}
	s.AddScan(meta, active)
	return meta
}

// AddScan registers scan metadata. active marks the scan as driven by the
// remote engine; inactive running/paused scans are reported as stopped.
func (s *Server) AddScan(meta domain.Meta, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if meta.Hosts == nil {
		meta.Hosts = map[string]domain.HostMeta{}
	}
	s.scans[meta.ID] = &scan{meta: meta, active: active}
}

func (s *Server) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc := s.scans[id]; sc != nil {
		sc.active = active
	}
}

// UpdateMeta edits stored metadata in place.
func (s *Server) UpdateMeta(id string, fn func(m *domain.Meta)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc := s.scans[id]; sc != nil {
		fn(&sc.meta)
	}
}

func (s *Server) Meta(id string) (domain.Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scans[id]
	if sc == nil {
		return domain.Meta{}, false
	}
	return sc.meta, true
}

// AppendFindings persists findings and bumps the scan totals.
func (s *Server) AppendFindings(id string, fs ...domain.Finding) error {
	if err := appendAll(s.findingsPath(id), fs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc := s.scans[id]; sc != nil {
		sc.meta.TotalFindings += int64(len(fs))
		for _, f := range fs {
			h := sc.meta.Hosts[f.Target]
			h.Target = f.Target
			h.Findings++
			sc.meta.Hosts[f.Target] = h
		}
	}
	return nil
}

func (s *Server) AppendProbes(id string, ps ...domain.Probe) error {
	if err := appendAll(s.probesPath(id), ps); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc := s.scans[id]; sc != nil {
		sc.meta.TotalRequests += int64(len(ps))
		for _, p := range ps {
			if isErrorProbe(p) {
				sc.meta.TotalErrors++
			}
		}
	}
	return nil
}

func appendAll[T any](path string, items []T) error {
	w, err := ndjson.Append(path)
	if err != nil {
		return err
	}
	defer w.Close()
	for _, it := range items {
		if err := w.Write(it); err != nil {
			return err
		}
	}
	return nil
}

func isErrorProbe(p domain.Probe) bool {
	return p.Error != "" || p.Status == 0
}

// view returns a copy of the stored scan with orphaned statuses normalised.
func (s *Server) view(id string) (domain.Meta, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scans[id]
	if sc == nil {
		return domain.Meta{}, false, false
	}
	meta := sc.meta
	meta.Hosts = make(map[string]domain.HostMeta, len(sc.meta.Hosts))
	for k, h := range sc.meta.Hosts {
		meta.Hosts[k] = h
	}
	if meta.ID == "" {
		meta.ID = id
	}
	if !sc.active && orphanable(meta.Status) {
		meta.Status = domain.ScanStatusStopped
		for k, h := range meta.Hosts {
			if !h.Status.Terminal() {
				h.Status = domain.HostStatusStopped
				meta.Hosts[k] = h
			}
		}
	}
	return meta, sc.active, true
}

func orphanable(st domain.ScanStatus) bool {
	n := st.Normalize()
	return n == "" || n.Live()
}

func (s *Server) scansList(r *http.Request) (any, *api.APIError) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.scans))
	for id := range s.scans {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	items := make([]domain.ScanListItem, 0, len(ids))
	for _, id := range ids {
		meta, active, ok := s.view(id)
		if !ok {
			continue
		}
		items = append(items, domain.ScanListItem{
			ID:            meta.ID,
			StartedAt:     meta.StartedAt,
			FinishedAt:    meta.FinishedAt,
			Status:        string(meta.Status),
			Targets:       meta.Targets,
			WordlistID:    meta.WordlistID,
			WordlistNames: meta.WordlistNames,
			TotalPaths:    meta.TotalPaths,
			TotalRequests: meta.TotalRequests,
			TotalFindings: meta.TotalFindings,
			TotalErrors:   meta.TotalErrors,
			Tags:          meta.Tags,
			Verbose:       meta.Verbose,
			LogFile:       meta.LogFile,
			Proxy:         meta.Proxy,
			Active:        active,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].StartedAt > items[j].StartedAt })
	return map[string]any{"items": items}, nil
}

func (s *Server) scanState(r *http.Request) (any, *api.APIError) {
	id, apiErr := api.RequireScanID(r.URL.Query().Get("scanId"))
	if apiErr != nil {
		return nil, apiErr
	}
	meta, active, ok := s.view(id)
	if !ok {
		return nil, notFound()
	}
	return map[string]any{"meta": meta, "active": active}, nil
}

func cursorLimit(r *http.Request, defaultLimit int) (string, int64, int, *api.APIError) {
	q := r.URL.Query()
	id, apiErr := api.RequireScanID(q.Get("scanId"))
	if apiErr != nil {
		return "", 0, 0, apiErr
	}

	var cursor int64
	if c := strings.TrimSpace(q.Get("cursor")); c != "" {
		v, err := strconv.ParseInt(c, 10, 64)
		if err != nil || v < 0 {
			return "", 0, 0, api.ValidationError(map[string]string{"cursor": "must be a non-negative integer"})
		}
		cursor = v
	}

	limit := defaultLimit
	if l := strings.TrimSpace(q.Get("limit")); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			return "", 0, 0, api.ValidationError(map[string]string{"limit": "must be a positive integer"})
		}
		limit = v
	}
	return id, cursor, min(limit, ndjson.MaxLimit), nil
}

func (s *Server) scanFindings(r *http.Request) (any, *api.APIError) {
	id, cursor, limit, apiErr := cursorLimit(r, ndjson.DefaultLimit)
	if apiErr != nil {
		return nil, apiErr
	}
	keep, apiErr := findingKeep(r.URL.Query())
	if apiErr != nil {
		return nil, apiErr
	}

	page, err := ndjson.ReadFiltered(s.findingsPath(id), cursor, limit, keep)
	if err != nil {
		return nil, internal("failed to read findings")
	}
	meta, _, _ := s.view(id)

	return map[string]any{
		"items":         page.Items,
		"nextCursor":    page.NextCursor,
		"hasMore":       page.HasMore(),
		"totalFindings": meta.TotalFindings,
	}, nil
}

func (s *Server) probePage(path func(string) string, keep func(domain.Probe) bool) handler {
	return func(r *http.Request) (any, *api.APIError) {
		id, cursor, limit, apiErr := cursorLimit(r, 500)
		if apiErr != nil {
			return nil, apiErr
		}
		page, err := ndjson.ReadFiltered(path(id), cursor, limit, keep)
		if err != nil {
			return nil, internal("failed to read probe log")
		}
		return page, nil
	}
}

func (s *Server) pauseScan(r *http.Request) (any, *api.APIError) {
	return s.transition(r, domain.ScanStatusRunning, domain.ScanStatusPaused, "scan_paused", "paused", "scan is not running")
}

func (s *Server) resumeScan(r *http.Request) (any, *api.APIError) {
	return s.transition(r, domain.ScanStatusPaused, domain.ScanStatusRunning, "scan_resumed", "resumed", "scan is not paused")
}

func (s *Server) transition(r *http.Request, from, to domain.ScanStatus, event, key, conflictMsg string) (any, *api.APIError) {
	id, apiErr := readScanID(r)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	sc := s.scans[id]
	switch {
	case sc == nil:
		s.mu.Unlock()
		return nil, notFound()
	case !sc.active || sc.meta.Status.Normalize() != from:
		s.mu.Unlock()
		return nil, conflict(conflictMsg)
	}
	sc.meta.Status = to
	s.mu.Unlock()

	s.Emit(event, domain.ScanControlMsg{ScanID: id})
	return map[string]any{key: true}, nil
}

func (s *Server) stopScan(r *http.Request) (any, *api.APIError) {
	id, apiErr := readScanID(r)
	if apiErr != nil {
		return nil, apiErr
	}

	now := time.Now().UTC().Format(time.RFC3339)

	s.mu.Lock()
	sc := s.scans[id]
	if sc == nil {
		s.mu.Unlock()
		return nil, notFound()
	}
	orphaned := !sc.active
	if sc.active || orphanable(sc.meta.Status) {
		sc.meta.Status = domain.ScanStatusStopped
		if sc.meta.FinishedAt == "" {
			sc.meta.FinishedAt = now
		}
		for k, h := range sc.meta.Hosts {
			if !h.Status.Terminal() {
				h.Status = domain.HostStatusStopped
				if h.FinishedAt == "" {
					h.FinishedAt = now
				}
				sc.meta.Hosts[k] = h
			}
		}
	}
	sc.active = false
	s.mu.Unlock()

	s.Emit("scan_stopped", domain.ScanControlMsg{ScanID: id, Orphaned: orphaned})
	if orphaned {
		return map[string]any{"stopped": true, "orphaned": true}, nil
	}
	return map[string]any{"stopped": true}, nil
}

func (s *Server) deleteScan(r *http.Request) (any, *api.APIError) {
	id, apiErr := readScanID(r)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	sc := s.scans[id]
	switch {
	case sc == nil:
		s.mu.Unlock()
		return nil, notFound()
	case sc.active:
		s.mu.Unlock()
		return nil, conflict("scan is running")
	}
	delete(s.scans, id)
	s.mu.Unlock()

	removed := 1
	for _, p := range []string{s.findingsPath(id), s.probesPath(id)} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, os.ErrNotExist):
			return nil, internal("failed to delete scan files")
		}
	}
	return map[string]any{"deleted": true, "removedFiles": removed}, nil
}
