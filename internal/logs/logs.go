package logs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/schedule"
	"github.com/Pusher91/truderwatch/internal/state"
)

const (
	DefaultTailInterval = 750 * time.Millisecond
	DefaultPageLimit    = 500
	DefaultBackfill     = 2000
)

type Options struct {
	TailInterval time.Duration
	PageLimit    int
}

// Tailer reads the request log (verbose scans) or error log into the
// store's probe ring. It owns the log cursor.
type Tailer struct {
	store *state.Store
	src   domain.ProbeSource
	log   zerolog.Logger

	interval time.Duration
	limit    int

	tail schedule.Ticker
	now  func() time.Time
}

func New(store *state.Store, src domain.ProbeSource, log zerolog.Logger, opts Options) *Tailer {
	t := &Tailer{
		store:    store,
		src:      src,
		log:      log.With().Str("component", "logs").Logger(),
		interval: opts.TailInterval,
		limit:    opts.PageLimit,
		now:      time.Now,
	}
	if t.interval <= 0 {
		t.interval = DefaultTailInterval
	}
	if t.limit <= 0 {
		t.limit = DefaultPageLimit
	}
	return t
}

// Refresh fetches one page from the log cursor, inserts every record into
// the probe ring and advances the cursor. It returns how many records the
// server sent, before deduplication, including a page dropped because a
// concurrent refresh moved the cursor. A page for a scan that is no longer
// selected counts as zero.
func (t *Tailer) Refresh(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = t.limit
	}

	var (
		scanID  string
		verbose bool
		cursor  domain.Cursor
	)
	t.store.View(func(st *state.State) {
		scanID, verbose, cursor = st.ScanID, st.Verbose, st.LogCursor.OrFirst()
	})
	if scanID == "" {
		return 0, nil
	}

	page, err := t.src.ProbeLog(ctx, scanID, verbose, cursor, limit)
	if err != nil {
		return 0, err
	}

	now := t.now()
	var moved, switched bool
	added := 0
	t.store.Update(func(st *state.State) {
		if st.ScanID != scanID {
			switched = true
			return
		}
		if st.LogCursor.OrFirst() != cursor {
			moved = true
			return
		}
		for _, p := range page.Items {
			if st.AddProbe(p) {
				added++
			}
			if p.Target == "" {
				continue
			}
			st.EnsureServer(p.Target)
			at := now
			if ts, err := time.Parse(time.RFC3339Nano, p.At); err == nil {
				at = ts
			}
			st.TouchServer(p.Target, at)
		}
		st.LogCursor = page.NextCursor.OrFirst()
	})
	if switched {
		t.log.Debug().Str("scan", scanID).Msg("dropping log page for previous scan")
		return 0, nil
	}
	if moved {
		// Another refresh already consumed this range; the log is not
		// exhausted, so callers draining it keep going from the new cursor.
		t.log.Debug().Str("scan", scanID).Msg("dropping overlapping log page")
		return len(page.Items), nil
	}

	if len(page.Items) > 0 {
		t.log.Debug().
			Str("scan", scanID).
			Int("fetched", len(page.Items)).
			Int("added", added).
			Str("cursor", page.NextCursor.String()).
			Msg("log page")
	}
	return len(page.Items), nil
}

// LoadUntilFull drains the log from the current cursor until maxItems records
// have been fetched or a page comes back empty.
func (t *Tailer) LoadUntilFull(ctx context.Context, maxItems int) (int, error) {
	if maxItems <= 0 {
		maxItems = DefaultBackfill
	}
	if t.store.ScanID() == "" {
		return 0, nil
	}

	total := 0
	for total < maxItems {
		n, err := t.Refresh(ctx, t.limit)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}

// StartTail polls Refresh every tail interval, starting immediately, and
// calls onTick after each successful poll. Any previous tail is replaced.
func (t *Tailer) StartTail(ctx context.Context, onTick func()) {
	t.tail.Start(ctx, t.interval, true, func(ctx context.Context) {
		if _, err := t.Refresh(ctx, t.limit); err != nil {
			if ctx.Err() == nil {
				t.log.Warn().Err(err).Msg("log tail refresh failed")
			}
			return
		}
		if onTick != nil {
			onTick()
		}
	})
}

func (t *Tailer) StopTail() {
	if t == nil {
		return
	}
	t.tail.Stop()
}

func (t *Tailer) Tailing() bool {
	return t != nil && t.tail.Running()
}
