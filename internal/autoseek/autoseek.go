package autoseek

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/filter"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/state"
)

const (
	DefaultDebounce = 200 * time.Millisecond
	DefaultMaxPages = 40
	DefaultMaxItems = 20000
)

// Reason tags a filter change.
type Reason string

const (
	ReasonSearch        Reason = "search"
	ReasonStatusInclude Reason = "status_include"
	ReasonStatusExclude Reason = "status_exclude"
	ReasonLengthInclude Reason = "length_include"
	ReasonLengthExclude Reason = "length_exclude"
	ReasonClear         Reason = "clear"
	ReasonPageEmpty     Reason = "page_empty"
)

// Seeks reports whether the change can hide every row of a page that still
// has data behind it.
func (r Reason) Seeks() bool {
	switch r {
	case ReasonStatusExclude, ReasonLengthExclude, ReasonPageEmpty:
		return true
	}
	return false
}

// Pager is the part of the findings layer the controller drives.
type Pager interface {
	LoadFirstPage(ctx context.Context, limit int) ([]domain.Finding, error)
	SeekNextMatch(ctx context.Context, match func([]domain.Finding) bool, opts findings.SeekOptions) (findings.SeekResult, error)
}

type Options struct {
	Debounce time.Duration
	MaxPages int
	MaxItems int
	Notifier domain.Notifier
	Logger   zerolog.Logger
}

// Outcome describes one controller run.
type Outcome struct {
	Ran      bool
	Reloaded bool
	Seek     findings.SeekResult
}

var errBusy = errors.New("autoseek: run already in flight")

// Controller reloads the first findings page after filter edits and, when
// the reloaded page shows nothing but more data exists, walks forward to
// the first page with a visible row.
type Controller struct {
	store  *state.Store
	pager  Pager
	notify domain.Notifier
	log    zerolog.Logger

	debounce *debouncer
	maxPages int
	maxItems int

	running atomic.Bool
}

func New(store *state.Store, pager Pager, opts Options) *Controller {
	c := &Controller{
		store:    store,
		pager:    pager,
		notify:   opts.Notifier,
		log:      opts.Logger.With().Str("component", "autoseek").Logger(),
		maxPages: opts.MaxPages,
		maxItems: opts.MaxItems,
	}
	if c.notify == nil {
		c.notify = domain.NopNotifier()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.maxItems <= 0 {
		c.maxItems = DefaultMaxItems
	}
	c.debounce = newDebouncer(opts.Debounce)
	return c
}

// FiltersChanged schedules a run. Bursts collapse into one run carrying the
// strongest reason seen: any seeking reason in the burst makes the run seek.
func (c *Controller) FiltersChanged(ctx context.Context, reason Reason) {
	c.debounce.trigger(reason, func(r Reason) {
		if _, err := c.Run(ctx, r); err != nil && !errors.Is(err, errBusy) && ctx.Err() == nil {
			c.log.Warn().Err(err).Str("reason", string(r)).Msg("auto-seek run failed")
		}
	})
}

// Cancel drops a pending run.
func (c *Controller) Cancel() {
	c.debounce.cancel()
}

func (c *Controller) Running() bool { return c.running.Load() }

// Run executes immediately. It is a no-op when another run is in flight, no
// scan is selected, or the findings view is streaming.
func (c *Controller) Run(ctx context.Context, reason Reason) (Outcome, error) {
	var out Outcome
	if !c.running.CompareAndSwap(false, true) {
		return out, errBusy
	}
	defer c.running.Store(false)

	var (
		scanID string
		mode   state.Mode
		limit  int
	)
	c.store.View(func(st *state.State) {
		scanID, mode, limit = st.ScanID, st.Findings.Mode, st.Findings.Limit
	})
	if scanID == "" || mode != state.ModePaged {
		return out, nil
	}
	out.Ran = true

	items, err := c.pager.LoadFirstPage(ctx, limit)
	if err != nil {
		return out, err
	}
	out.Reloaded = true
	c.notify.Notify(domain.SignalFindings)
	c.notify.Notify(domain.SignalPager)

	if !reason.Seeks() {
		return out, nil
	}

	var (
		m       filter.Matcher
		hasMore bool
	)
	c.store.View(func(st *state.State) {
		m = st.Filter.Matcher()
		hasMore = st.Findings.HasMore
	})
	if m.Any(items) || !hasMore {
		return out, nil
	}

	out.Seek, err = c.pager.SeekNextMatch(ctx, m.Any, findings.SeekOptions{
		MaxPages: c.maxPages,
		MaxItems: c.maxItems,
	})
	c.log.Debug().
		Str("reason", string(reason)).
		Bool("found", out.Seek.Found).
		Int("pages", out.Seek.Pages).
		Int("scanned", out.Seek.Scanned).
		Msg("seek")
	if out.Seek.Advanced {
		c.notify.Notify(domain.SignalFindings)
		c.notify.Notify(domain.SignalPager)
	}
	return out, err
}
