package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/Pusher91/truderwatch/internal/autoseek"
	"github.com/Pusher91/truderwatch/internal/client"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/live"
	"github.com/Pusher91/truderwatch/internal/logs"
	"github.com/Pusher91/truderwatch/internal/prefs"
	"github.com/Pusher91/truderwatch/internal/schedule"
	"github.com/Pusher91/truderwatch/internal/state"
)

const (
	DefaultNetInfoInterval = 30 * time.Second
	DefaultBackfill        = logs.DefaultBackfill
)

// Remote is everything the session consumes from the remote service.
type Remote interface {
	domain.FindingsSource
	domain.ProbeSource
	domain.ScanSource
	Stream(ctx context.Context, hooks client.StreamHooks) error
}

type Options struct {
	FindingsLimit int
	StreamMax     int
	MaxProbes     int

	TailInterval time.Duration
	LogPageLimit int
	Backfill     int

	SeekDebounce time.Duration
	SeekMaxPages int
	SeekMaxItems int

	NetInfoInterval time.Duration
	NetInfoPublic   bool

	Notifier domain.Notifier
	Logger   zerolog.Logger
}

// Session wires the store, the access layers, the reconciler and the
// auto-seek controller for one remote.
type Session struct {
	store  *state.Store
	remote Remote
	notify domain.Notifier
	log    zerolog.Logger
	opts   Options

	Pager *findings.Pager
	Logs  *logs.Tailer
	Live  *live.Reconciler
	Seek  *autoseek.Controller

	netinfo schedule.Ticker

	mu      sync.Mutex
	pending *prefs.Filters
}

func New(remote Remote, opts Options) *Session {
	if opts.Backfill <= 0 {
		opts.Backfill = DefaultBackfill
	}
	if opts.NetInfoInterval <= 0 {
		opts.NetInfoInterval = DefaultNetInfoInterval
	}
	notify := opts.Notifier
	if notify == nil {
		notify = domain.NopNotifier()
	}

	store := state.New()
	store.Update(func(st *state.State) {
		if opts.FindingsLimit > 0 {
			st.Findings.Limit = opts.FindingsLimit
		}
		if opts.StreamMax > 0 {
			st.Findings.StreamMax = opts.StreamMax
		}
		if opts.MaxProbes > 0 {
			st.MaxProbes = opts.MaxProbes
		}
	})

	s := &Session{
		store:  store,
		remote: remote,
		notify: notify,
		log:    opts.Logger.With().Str("component", "session").Logger(),
		opts:   opts,
	}
	s.Pager = findings.NewPager(store, remote, opts.Logger)
	s.Logs = logs.New(store, remote, opts.Logger, logs.Options{
		TailInterval: opts.TailInterval,
		PageLimit:    opts.LogPageLimit,
	})
	s.Seek = autoseek.New(store, s.Pager, autoseek.Options{
		Debounce: opts.SeekDebounce,
		MaxPages: opts.SeekMaxPages,
		MaxItems: opts.SeekMaxItems,
		Notifier: notify,
		Logger:   opts.Logger,
	})
	s.Live = live.New(store, live.Options{
		Tail:       s.Logs,
		Notifier:   notify,
		OnScanDone: s.OnScanDone,
		Logger:     opts.Logger,
	})
	return s
}

func (s *Session) Store() *state.Store { return s.store }

func (s *Session) emit(sigs ...domain.Signal) {
	for _, sig := range sigs {
		s.notify.Notify(sig)
	}
}

// Run selects scanID (or the default scan when empty) and then follows the
// event stream and refreshes net info until ctx is done.
func (s *Session) Run(ctx context.Context, scanID string) error {
	defer s.Close()

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := s.remote.Stream(ctx, s.Live.Hooks(ctx)); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("event stream ended")
		}
	})
	s.netinfo.Start(ctx, s.opts.NetInfoInterval, true, func(ctx context.Context) {
		if err := s.RefreshNetInfo(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("net info refresh failed")
		}
	})

	if err := s.Open(ctx, scanID); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Msg("initial scan selection failed")
	}

	<-ctx.Done()
	s.netinfo.Stop()
	wg.Wait()
	return nil
}

// Open loads the scan list and selects scanID, or the default scan.
func (s *Session) Open(ctx context.Context, scanID string) error {
	items, err := s.RefreshScans(ctx)
	if err != nil {
		return err
	}
	if scanID == "" {
		scanID = PickDefaultScanID(items)
	}
	if scanID == "" {
		return nil
	}
	return s.SelectScan(ctx, scanID)
}

func (s *Session) Close() {
	s.Logs.StopTail()
	s.Seek.Cancel()
	s.netinfo.Stop()
}

// RefreshNetInfo stores the local (and optionally public) IPv4 details. A
// failure clears them.
func (s *Session) RefreshNetInfo(ctx context.Context) error {
	info, err := s.remote.NetInfo(ctx, s.opts.NetInfoPublic)
	s.store.Update(func(st *state.State) {
		if err != nil {
			st.NetInfo = nil
			return
		}
		st.NetInfo = &info
	})
	s.emit(domain.SignalNetInfo)
	return err
}

// Restore seeds a remembered page size now and holds the filter text until
// the next scan selection, since selecting a scan resets the filters. Call it
// before Open so the first page is fetched with them.
func (s *Session) Restore(p prefs.Prefs) {
	s.store.Update(func(st *state.State) {
		if p.PageSize > 0 {
			st.Findings.Limit = p.PageSize
		}
	})
	f := p.Filters
	s.mu.Lock()
	s.pending = &f
	s.mu.Unlock()
}

// applyPending moves filters held by Restore into the store, once.
func (s *Session) applyPending() {
	s.mu.Lock()
	f := s.pending
	s.pending = nil
	s.mu.Unlock()
	if f == nil {
		return
	}
	s.store.Update(func(st *state.State) {
		st.Filter.SetSearch(f.Search)
		st.Filter.SetStatusInclude(f.StatusInclude)
		st.Filter.SetStatusExclude(f.StatusExclude)
		st.Filter.SetLengthInclude(f.LengthInclude)
		st.Filter.SetLengthExclude(f.LengthExclude)
	})
}

// Remembered captures the values worth restoring next time.
func (s *Session) Remembered(server string) prefs.Prefs {
	var p prefs.Prefs
	s.store.View(func(st *state.State) { p = prefs.Capture(st, server) })
	return p
}
