package state

import (
	"time"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/filter"
)

const (
	DefaultMaxProbes     = 20000
	DefaultStreamMax     = 500
	DefaultFindingsLimit = 500
)

type Mode string

const (
	ModePaged  Mode = "paged"
	ModeStream Mode = "stream"
)

// Connection status texts.
const (
	ConnConnecting   = "connecting"
	ConnConnected    = "connected"
	ConnDisconnected = "disconnected (will retry)"
	ConnScanComplete = "connected - scan complete"
)

// Findings is the findings view: the paged buffer, the stream ring, cursor
// history and totals.
type Findings struct {
	Mode Mode

	// Items is the current page only, replaced on every fetch.
	Items []domain.Finding

	// Stream is newest-first and never longer than StreamMax.
	Stream      []domain.Finding
	StreamMax   int
	StreamTotal int64

	Cursor      domain.Cursor
	NextCursor  domain.Cursor
	PrevCursors []domain.Cursor
	Limit       int
	HasMore     bool

	// TotalAll is nil when unknown, never zero for "unknown".
	TotalAll        *int64
	TotalLowerBound bool

	KnownStatuses map[int]struct{}

	LastTotal int
	LastShown int
	EmptyKey  string
}

// Buffer is whichever container the current mode renders from.
func (f *Findings) Buffer() []domain.Finding {
	if f.Mode == ModeStream {
		return f.Stream
	}
	return f.Items
}

func (f *Findings) NoteStatuses(items []domain.Finding) {
	if f.KnownStatuses == nil {
		f.KnownStatuses = make(map[int]struct{})
	}
	for _, it := range items {
		if it.Status > 0 {
			f.KnownStatuses[it.Status] = struct{}{}
		}
	}
}

// PushStream prepends to the stream ring, evicting from the tail.
func (f *Findings) PushStream(it domain.Finding) {
	max := f.StreamMax
	if max <= 0 {
		max = DefaultStreamMax
	}
	n := len(f.Stream) + 1
	if n > max {
		n = max
	}
	next := make([]domain.Finding, n)
	next[0] = it
	copy(next[1:], f.Stream)
	f.Stream = next
}

// State is the single record every component reads and writes. Access it
// through a Store.
type State struct {
	ScanID         string
	Verbose        bool
	SelectedTarget string

	Scans   []domain.ScanSummary
	Conn    string
	NetInfo *domain.NetInfo

	Servers     map[string]*domain.ServerProgress
	serverOrder []string

	// probes is oldest-first; the newest record is the logical head.
	probes    []domain.Probe
	probeSeen map[string]struct{}
	MaxProbes int
	LogCursor domain.Cursor

	Findings Findings
	Filter   filter.Spec
}

func newState() State {
	return State{
		Conn:      ConnConnecting,
		Servers:   make(map[string]*domain.ServerProgress),
		probeSeen: make(map[string]struct{}),
		MaxProbes: DefaultMaxProbes,
		LogCursor: domain.FirstCursor,
		Findings: Findings{
			Mode:          ModePaged,
			StreamMax:     DefaultStreamMax,
			Cursor:        domain.FirstCursor,
			NextCursor:    domain.FirstCursor,
			Limit:         DefaultFindingsLimit,
			KnownStatuses: make(map[int]struct{}),
		},
	}
}

// EnsureServer returns the progress entry for target, creating a queued one
// if the target has not been seen yet.
func (s *State) EnsureServer(target string) *domain.ServerProgress {
	if sp, ok := s.Servers[target]; ok {
		return sp
	}
	sp := &domain.ServerProgress{Target: target, Status: domain.HostStatusQueued}
	s.Servers[target] = sp
	s.serverOrder = append(s.serverOrder, target)
	return sp
}

// ServerTargets lists targets in first-seen order.
func (s *State) ServerTargets() []string {
	return append([]string(nil), s.serverOrder...)
}

// TouchServer bumps the last-activity time of an existing entry.
func (s *State) TouchServer(target string, at time.Time) {
	if sp, ok := s.Servers[target]; ok && at.After(sp.LastProbeAt) {
		sp.LastProbeAt = at
	}
}

// AddProbe inserts p at the head of the probe ring unless a record with the
// same key is already present. It reports whether p was stored.
func (s *State) AddProbe(p domain.Probe) bool {
	k := p.Key()
	if _, dup := s.probeSeen[k]; dup {
		return false
	}
	s.probeSeen[k] = struct{}{}
	s.probes = append(s.probes, p)

	max := s.MaxProbes
	if max <= 0 {
		max = DefaultMaxProbes
	}
	if over := len(s.probes) - max; over > 0 {
		for _, old := range s.probes[:over] {
			delete(s.probeSeen, old.Key())
		}
		s.probes = append([]domain.Probe(nil), s.probes[over:]...)
	}
	return true
}

func (s State) ProbeCount() int { return len(s.probes) }

// Probes returns up to n records, newest first. n <= 0 means all.
func (s State) Probes(n int) []domain.Probe {
	if n <= 0 || n > len(s.probes) {
		n = len(s.probes)
	}
	out := make([]domain.Probe, 0, n)
	for i := len(s.probes) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.probes[i])
	}
	return out
}

// ScanByID returns the scan-list entry for id, or nil.
func (s *State) ScanByID(id string) *domain.ScanSummary {
	if id == "" {
		return nil
	}
	for i := range s.Scans {
		if s.Scans[i].ID == id {
			return &s.Scans[i]
		}
	}
	return nil
}

// UpsertScanHead puts sum at the head of the scan list, replacing any entry
// with the same id.
func (s *State) UpsertScanHead(sum domain.ScanSummary) {
	out := make([]domain.ScanSummary, 0, len(s.Scans)+1)
	out = append(out, sum)
	for _, it := range s.Scans {
		if it.ID != sum.ID {
			out = append(out, it)
		}
	}
	s.Scans = out
}

// SetTotal records an authoritative total.
func (s *State) SetTotal(n int64) {
	s.Findings.TotalAll = &n
	s.Findings.TotalLowerBound = false
}

// Reset clears everything scoped to the selected scan. The scan id, verbose
// flag, scan list, connection status, net info and configured limits stay.
func (s *State) Reset() {
	keep := *s
	*s = newState()

	s.ScanID = keep.ScanID
	s.Verbose = keep.Verbose
	s.Scans = keep.Scans
	s.Conn = keep.Conn
	s.NetInfo = keep.NetInfo
	s.MaxProbes = keep.MaxProbes
	s.Findings.StreamMax = keep.Findings.StreamMax
	s.Findings.Limit = keep.Findings.Limit
}

// clone copies everything a reader could observe being mutated later.
func (s *State) clone() State {
	c := *s

	c.Scans = append([]domain.ScanSummary(nil), s.Scans...)
	if s.NetInfo != nil {
		ni := *s.NetInfo
		c.NetInfo = &ni
	}
	c.Servers = make(map[string]*domain.ServerProgress, len(s.Servers))
	for k, v := range s.Servers {
		sp := *v
		c.Servers[k] = &sp
	}
	c.serverOrder = append([]string(nil), s.serverOrder...)
	c.probes = append([]domain.Probe(nil), s.probes...)
	c.probeSeen = nil

	f := &c.Findings
	f.Items = append([]domain.Finding(nil), s.Findings.Items...)
	f.Stream = append([]domain.Finding(nil), s.Findings.Stream...)
	f.PrevCursors = append([]domain.Cursor(nil), s.Findings.PrevCursors...)
	if s.Findings.TotalAll != nil {
		n := *s.Findings.TotalAll
		f.TotalAll = &n
	}
	f.KnownStatuses = make(map[int]struct{}, len(s.Findings.KnownStatuses))
	for k := range s.Findings.KnownStatuses {
		f.KnownStatuses[k] = struct{}{}
	}
	return c
}
