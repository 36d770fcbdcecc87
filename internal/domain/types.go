package domain

import (
	"strconv"
	"time"
)

type Meta struct {
	ID            string              `json:"id"`
	StartedAt     string              `json:"startedAt"`
	FinishedAt    string              `json:"finishedAt,omitempty"`
	Targets       []string            `json:"targets"`
	WordlistID    string              `json:"wordlistId"`
	WordlistNames []string            `json:"wordlistNames,omitempty"`
	TotalPaths    int                 `json:"totalPaths"`
	Concurrency   int                 `json:"concurrency"`
	TimeoutMs     int                 `json:"timeoutMs"`
	RateLimit     int                 `json:"rateLimit"`
	Tags          []string            `json:"tags,omitempty"`
	Verbose       bool                `json:"verbose"`
	LogFile       string              `json:"logFile,omitempty"`
	Proxy         string              `json:"proxy,omitempty"`
	TotalRequests int64               `json:"totalRequests"`
	TotalFindings int64               `json:"totalFindings"`
	TotalErrors   int64               `json:"totalErrors"`
	Hosts         map[string]HostMeta `json:"hosts,omitempty"`
	Status        ScanStatus          `json:"status,omitempty"`
}

type HostMeta struct {
	Target     string     `json:"target"`
	Status     HostStatus `json:"status"`
	Checked    int64      `json:"checked"`
	Total      int64      `json:"total"`
	Findings   int64      `json:"findings"`
	Errors     int64      `json:"errors"`
	StartedAt  string     `json:"startedAt,omitempty"`
	FinishedAt string     `json:"finishedAt,omitempty"`
}

// ScanState is the decoded /api/scans/state response. SeedTotal carries the
// first total-findings alias present in the payload, nil when none was sent.
type ScanState struct {
	Meta      Meta   `json:"meta"`
	Active    bool   `json:"active"`
	SeedTotal *int64 `json:"-"`
}

type ScanListItem struct {
	ID            string   `json:"id"`
	StartedAt     string   `json:"startedAt,omitempty"`
	FinishedAt    string   `json:"finishedAt,omitempty"`
	Status        string   `json:"status,omitempty"`
	Targets       []string `json:"targets,omitempty"`
	TargetsCount  int      `json:"targetsCount,omitempty"`
	WordlistID    string   `json:"wordlistId,omitempty"`
	WordlistNames []string `json:"wordlistNames,omitempty"`
	TotalPaths    int      `json:"totalPaths,omitempty"`
	TotalRequests int64    `json:"totalRequests,omitempty"`
	TotalFindings int64    `json:"totalFindings,omitempty"`
	TotalErrors   int64    `json:"totalErrors,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Verbose       bool     `json:"verbose,omitempty"`
	LogFile       string   `json:"logFile,omitempty"`
	Proxy         string   `json:"proxy,omitempty"`
	Active        bool     `json:"active"`
}

func (it ScanListItem) Summary() ScanSummary {
	n := it.TargetsCount
	if n == 0 {
		n = len(it.Targets)
	}
	return ScanSummary{
		ID:            it.ID,
		Active:        it.Active,
		Status:        ScanStatus(it.Status).Normalize(),
		StartedAt:     it.StartedAt,
		FinishedAt:    it.FinishedAt,
		TargetsCount:  n,
		Tags:          it.Tags,
		TotalFindings: it.TotalFindings,
		TotalErrors:   it.TotalErrors,
		Verbose:       it.Verbose,
	}
}

// ScanSummary is one row of the client-side scan list.
type ScanSummary struct {
	ID            string     `json:"id"`
	Active        bool       `json:"active"`
	Status        ScanStatus `json:"status"`
	StartedAt     string     `json:"startedAt,omitempty"`
	FinishedAt    string     `json:"finishedAt,omitempty"`
	TargetsCount  int        `json:"targetsCount"`
	Tags          []string   `json:"tags,omitempty"`
	TotalFindings int64      `json:"totalFindings"`
	TotalErrors   int64      `json:"totalErrors"`
	Verbose       bool       `json:"verbose"`
}

// Orphaned scans were left running/paused by a server that no longer drives them.
func (s ScanSummary) Orphaned() bool { return !s.Active && s.Status.Live() }

func (s ScanSummary) DisplayStatus() ScanStatus {
	if s.Orphaned() {
		return ScanStatusStopped
	}
	if s.Status == "" {
		return "-"
	}
	return s.Status
}

// ServerProgress is per-target progress, keyed by the target string.
type ServerProgress struct {
	Target      string     `json:"target"`
	Status      HostStatus `json:"status"`
	Percent     int        `json:"percent"`
	Rate        int        `json:"rate"`
	Checked     int64      `json:"checked"`
	Total       int64      `json:"total"`
	Findings    int64      `json:"findings"`
	Errors      int64      `json:"errors"`
	LastProbeAt time.Time  `json:"lastProbeAt"`
}

type ScanStartedMsg struct {
	ScanID     string   `json:"scanId"`
	Targets    []string `json:"targets"`
	WordlistID string   `json:"wordlistId"`
	TotalPaths int      `json:"totalPaths"`
	StartedAt  string   `json:"startedAt"`
	Verbose    bool     `json:"verbose"`
	LogFile    string   `json:"logFile,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type HostStartedMsg struct {
	ScanID string `json:"scanId"`
	Target string `json:"target"`
	Total  int64  `json:"total"`
}

type HostProgressMsg struct {
	ScanID  string `json:"scanId"`
	Target  string `json:"target"`
	Percent int    `json:"percent"`
	RateRPS int    `json:"rate_rps"`
	Checked int64  `json:"checked"`
	Total   int64  `json:"total"`
	Errors  int64  `json:"errors"`
}

// ScanControlMsg covers scan_paused, scan_resumed, scan_stopped and scan_done.
type ScanControlMsg struct {
	ScanID   string `json:"scanId"`
	Orphaned bool   `json:"orphaned,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Probe struct {
	ScanID      string `json:"scanId,omitempty"`
	Target      string `json:"target"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	Status      int    `json:"status"`
	Length      int64  `json:"length"`
	DurationMs  int64  `json:"durationMs"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
	Error       string `json:"error,omitempty"`
	At          string `json:"at"`
}

// Key is the identity used to deduplicate probe records. The same function
// serves insertion and the rebuild after eviction.
func (p Probe) Key() string {
	loc := p.URL
	if loc == "" {
		loc = p.Target + p.Path
	}
	return p.At + "|" + strconv.Itoa(p.Status) + "|" + loc
}

type Finding struct {
	ScanID        string `json:"scanId,omitempty"`
	Target        string `json:"target"`
	Path          string `json:"path"`
	URL           string `json:"url"`
	Status        int    `json:"status"`
	Length        int64  `json:"length"`
	Soft404Likely bool   `json:"soft404_likely,omitempty"`
	At            string `json:"at,omitempty"`
}

// Location is the URL when present, otherwise target+path.
func (f Finding) Location() string {
	if f.URL != "" {
		return f.URL
	}
	return f.Target + f.Path
}

type NetInfo struct {
	LocalIPv4s        []string `json:"localIPv4s"`
	OutboundLocalIPv4 string   `json:"outboundLocalIPv4,omitempty"`
	PublicIPv4        string   `json:"publicIPv4,omitempty"`
	PublicIPv4Enabled bool     `json:"publicIPv4Enabled"`
}
