package domain

import "context"

type FindingsSource interface {
	Findings(ctx context.Context, scanID string, cursor Cursor, limit int, q FindingsQuery) (Page[Finding], error)
}

type ProbeSource interface {
	ProbeLog(ctx context.Context, scanID string, verbose bool, cursor Cursor, limit int) (Page[Probe], error)
}

type ScanSource interface {
	Scans(ctx context.Context) ([]ScanListItem, error)
	ScanState(ctx context.Context, scanID string) (ScanState, error)
	Control(ctx context.Context, action ScanAction, scanID string) error
	NetInfo(ctx context.Context, public bool) (NetInfo, error)
}

// Signal names a part of the view that changed.
type Signal string

const (
	SignalFindings Signal = "findings"
	SignalPager    Signal = "pager"
	SignalConn     Signal = "conn"
	SignalServers  Signal = "servers"
	SignalProbes   Signal = "probes"
	SignalScans    Signal = "scans"
	SignalNetInfo  Signal = "netinfo"
)

// Notifier receives render hooks after the store has been mutated.
type Notifier interface {
	Notify(sig Signal)
}

type NotifyFunc func(sig Signal)

func (f NotifyFunc) Notify(sig Signal) {
	if f != nil {
		f(sig)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Signal) {}

func NopNotifier() Notifier { return nopNotifier{} }
