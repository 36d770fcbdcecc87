package live

// Event names pushed on /events.
const (
	EventReady              = "ready"
	EventScanStartRequested = "scan_start_requested"
	EventScanStarted        = "scan_started"
	EventHostStarted        = "host_started"
	EventHostProgress       = "host_progress"
	EventFinding            = "finding"
	EventProbeError         = "probe_error"
	EventProbe              = "probe"
	EventScanDone           = "scan_done"
	EventScanPaused         = "scan_paused"
	EventScanResumed        = "scan_resumed"
	EventScanStopped        = "scan_stopped"
)
