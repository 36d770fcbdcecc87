package live

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pusher91/truderwatch/internal/client"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

// TailStopper is the part of the log tailer the reconciler needs.
type TailStopper interface {
	StopTail()
}

type Options struct {
	Tail     TailStopper
	Notifier domain.Notifier
	// OnScanDone runs after scan_done has been applied. Its error is logged.
	OnScanDone func(ctx context.Context, msg domain.ScanControlMsg) error
	Logger     zerolog.Logger
}

// Reconciler applies pushed events to the store. Each event is one
// critical section; nothing is fetched except through OnScanDone.
type Reconciler struct {
	store  *state.Store
	tail   TailStopper
	notify domain.Notifier
	done   func(ctx context.Context, msg domain.ScanControlMsg) error
	log    zerolog.Logger
	now    func() time.Time
}

func New(store *state.Store, opts Options) *Reconciler {
	r := &Reconciler{
		store:  store,
		tail:   opts.Tail,
		notify: opts.Notifier,
		done:   opts.OnScanDone,
		log:    opts.Logger.With().Str("component", "live").Logger(),
		now:    time.Now,
	}
	if r.notify == nil {
		r.notify = domain.NopNotifier()
	}
	return r
}

func (r *Reconciler) emit(sigs ...domain.Signal) {
	for _, s := range sigs {
		r.notify.Notify(s)
	}
}

// Hooks adapts the reconciler to the client's event stream.
func (r *Reconciler) Hooks(ctx context.Context) client.StreamHooks {
	return client.StreamHooks{
		OnOpen: r.Connected,
		OnEvent: func(ev client.Event) {
			if err := r.Handle(ctx, ev); err != nil {
				r.log.Warn().Err(err).Str("event", ev.Name).Msg("dropping event")
			}
		},
		OnError: r.Disconnected,
	}
}

func (r *Reconciler) Connected() {
	r.setConn(state.ConnConnected)
}

func (r *Reconciler) Disconnected(err error) {
	r.setConn(state.ConnDisconnected)
}

func (r *Reconciler) setConn(text string) {
	r.store.Update(func(st *state.State) { st.Conn = text })
	r.emit(domain.SignalConn)
}

// Handle applies one event. Undecodable payloads are reported and leave the
// store unchanged.
func (r *Reconciler) Handle(ctx context.Context, ev client.Event) error {
	r.log.Debug().Str("event", ev.Name).Int("bytes", len(ev.Data)).Msg("event")

	switch ev.Name {
	case EventReady:
		r.Connected()
		return nil

	case EventScanStarted:
		var m domain.ScanStartedMsg
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.scanStarted(m)

	case EventHostStarted:
		var m domain.HostStartedMsg
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.hostStarted(m)

	case EventHostProgress:
		var m domain.HostProgressMsg
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.hostProgress(m)

	case EventFinding:
		var m domain.Finding
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.finding(m)

	case EventProbeError:
		var m domain.Probe
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.probeError(m)

	case EventProbe:
		var m domain.Probe
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.probe(m)

	case EventScanDone:
		var m domain.ScanControlMsg
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.scanDone(ctx, m)

	case EventScanPaused, EventScanResumed, EventScanStopped:
		var m domain.ScanControlMsg
		if err := decode(ev, &m); err != nil {
			return err
		}
		r.scanControl(ev.Name, m)

	default:
		// scan_start_requested and anything newer carry nothing the view uses.
	}
	return nil
}

func decode(ev client.Event, dst any) error {
	if len(ev.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(ev.Data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Name, err)
	}
	return nil
}

// mine reports whether an event for scanID belongs to the scan on screen.
// Events without a scan id are applied.
func mine(st *state.State, scanID string) bool {
	return scanID == "" || st.ScanID == "" || scanID == st.ScanID
}

func owner(st *state.State, scanID string) *domain.ScanSummary {
	if scanID == "" {
		scanID = st.ScanID
	}
	return st.ScanByID(scanID)
}

func (r *Reconciler) scanStarted(m domain.ScanStartedMsg) {
	if r.tail != nil {
		r.tail.StopTail()
	}

	r.store.Update(func(st *state.State) {
		st.Reset()
		st.ScanID = m.ScanID
		st.Verbose = m.Verbose

		f := &st.Findings
		f.Mode = state.ModeStream
		f.Stream = nil
		f.StreamTotal = 0
		f.KnownStatuses = make(map[int]struct{})
		st.SetTotal(0)

		st.Conn = "connected - scan running (" + strconv.Itoa(len(m.Targets)) + " targets)"

		for _, t := range m.Targets {
			st.EnsureServer(t)
		}

		if m.ScanID != "" {
			startedAt := m.StartedAt
			if startedAt == "" {
				startedAt = r.now().UTC().Format(time.RFC3339)
			}
			st.UpsertScanHead(domain.ScanSummary{
				ID:           m.ScanID,
				Active:       true,
				Status:       domain.ScanStatusRunning,
				StartedAt:    startedAt,
				TargetsCount: len(m.Targets),
				Tags:         m.Tags,
				Verbose:      m.Verbose,
			})
		}
	})

	r.emit(domain.SignalConn, domain.SignalScans, domain.SignalServers,
		domain.SignalProbes, domain.SignalFindings, domain.SignalPager)
}

func (r *Reconciler) hostStarted(m domain.HostStartedMsg) {
	if m.Target == "" {
		return
	}
	applied := false
	r.store.Update(func(st *state.State) {
		if !mine(st, m.ScanID) {
			return
		}
		applied = true
		sp := st.EnsureServer(m.Target)
		sp.Status = domain.HostStatusRunning
		if m.Total > 0 {
			sp.Total = m.Total
		}
		sp.LastProbeAt = r.now()
	})
	if applied {
		r.emit(domain.SignalServers)
	}
}

func (r *Reconciler) hostProgress(m domain.HostProgressMsg) {
	if m.Target == "" {
		return
	}
	applied := false
	r.store.Update(func(st *state.State) {
		if !mine(st, m.ScanID) {
			return
		}
		applied = true
		sp := st.EnsureServer(m.Target)
		if m.Percent >= 100 {
			sp.Status = domain.HostStatusCompleted
		} else {
			sp.Status = domain.HostStatusRunning
		}
		sp.Percent = m.Percent
		sp.Rate = m.RateRPS
		sp.Checked = m.Checked
		if m.Total > 0 {
			sp.Total = m.Total
		}
		if m.Errors > 0 {
			sp.Errors = m.Errors
		}
		sp.LastProbeAt = r.now()
	})
	if applied {
		r.emit(domain.SignalServers)
	}
}

func (r *Reconciler) finding(m domain.Finding) {
	if m.Target == "" {
		return
	}
	stream := false
	r.store.Update(func(st *state.State) {
		if sum := owner(st, m.ScanID); sum != nil {
			sum.TotalFindings++
		}
		if !mine(st, m.ScanID) {
			return
		}

		st.EnsureServer(m.Target).Findings++

		f := &st.Findings
		f.StreamTotal++
		switch {
		case f.Mode == state.ModeStream:
			st.SetTotal(f.StreamTotal)
			f.PushStream(m)
			f.NoteStatuses([]domain.Finding{m})
			stream = true
		case f.TotalAll != nil && !f.TotalLowerBound:
			st.SetTotal(*f.TotalAll + 1)
			f.StreamTotal = *f.TotalAll
		}
	})

	if stream {
		r.emit(domain.SignalFindings)
	}
	r.emit(domain.SignalScans, domain.SignalServers)
}

func (r *Reconciler) probeError(m domain.Probe) {
	if m.Target == "" {
		return
	}
	r.store.Update(func(st *state.State) {
		if sum := owner(st, m.ScanID); sum != nil {
			sum.TotalErrors++
		}
		if !mine(st, m.ScanID) {
			return
		}
		sp := st.EnsureServer(m.Target)
		sp.Errors++
		sp.LastProbeAt = r.now()
		st.AddProbe(m)
	})
	r.emit(domain.SignalScans, domain.SignalServers, domain.SignalProbes)
}

func (r *Reconciler) probe(m domain.Probe) {
	if m.Target == "" {
		return
	}
	applied := false
	r.store.Update(func(st *state.State) {
		if !st.Verbose || !mine(st, m.ScanID) {
			return
		}
		applied = true
		st.EnsureServer(m.Target).LastProbeAt = r.now()
		st.AddProbe(m)
	})
	if applied {
		r.emit(domain.SignalProbes)
	}
}

func (r *Reconciler) scanDone(ctx context.Context, m domain.ScanControlMsg) {
	r.store.Update(func(st *state.State) {
		if sum := owner(st, m.ScanID); sum != nil {
			sum.Active = false
			switch {
			case m.Error != "":
				sum.Status = domain.ScanStatusError
			case sum.Status != domain.ScanStatusStopped:
				sum.Status = domain.ScanStatusCompleted
			}
		}
		if mine(st, m.ScanID) {
			st.Conn = state.ConnScanComplete
		}
	})
	r.emit(domain.SignalConn, domain.SignalScans, domain.SignalServers)

	if r.done == nil {
		return
	}
	if err := r.done(ctx, m); err != nil && ctx.Err() == nil {
		r.log.Warn().Err(err).Str("scan", m.ScanID).Msg("scan done handler failed")
	}
}

func (r *Reconciler) scanControl(name string, m domain.ScanControlMsg) {
	var (
		scanStatus domain.ScanStatus
		hostStatus domain.HostStatus
	)
	switch name {
	case EventScanPaused:
		scanStatus, hostStatus = domain.ScanStatusPaused, domain.HostStatusPaused
	case EventScanResumed:
		scanStatus, hostStatus = domain.ScanStatusRunning, domain.HostStatusRunning
	default:
		scanStatus, hostStatus = domain.ScanStatusStopped, domain.HostStatusStopped
	}

	stopped := false
	r.store.Update(func(st *state.State) {
		if sum := owner(st, m.ScanID); sum != nil {
			sum.Status = scanStatus
			if scanStatus == domain.ScanStatusStopped {
				sum.Active = false
			}
		}
		if !mine(st, m.ScanID) {
			return
		}
		for _, sp := range st.Servers {
			if sp.Status.Terminal() {
				continue
			}
			if hostStatus == domain.HostStatusRunning && sp.Status == domain.HostStatusQueued {
				continue
			}
			sp.Status = hostStatus
		}
		stopped = scanStatus == domain.ScanStatusStopped
	})

	if stopped && r.tail != nil {
		r.tail.StopTail()
	}
	r.emit(domain.SignalScans, domain.SignalServers)
}
