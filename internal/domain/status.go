package domain

import "strings"

type ScanStatus string
type HostStatus string

const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusPaused    ScanStatus = "paused"
	ScanStatusStopped   ScanStatus = "stopped"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusError     ScanStatus = "error"
)

const (
	HostStatusQueued    HostStatus = "queued"
	HostStatusRunning   HostStatus = "running"
	HostStatusPaused    HostStatus = "paused"
	HostStatusStopped   HostStatus = "stopped"
	HostStatusCompleted HostStatus = "completed"
	HostStatusError     HostStatus = "error"
)

func (s ScanStatus) Normalize() ScanStatus {
	return ScanStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Live reports whether the remote side may still emit events for the scan.
func (s ScanStatus) Live() bool {
	n := s.Normalize()
	return n == ScanStatusRunning || n == ScanStatusPaused
}

// Terminal host statuses are never overwritten by scan-wide pause/resume/stop.
func (s HostStatus) Terminal() bool {
	return s == HostStatusCompleted || s == HostStatusError
}
