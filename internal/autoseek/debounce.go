package autoseek

import (
	"sync"
	"time"

	"github.com/Pusher91/truderwatch/internal/schedule"
)

// debouncer wraps schedule.Debouncer, remembering whether any reason in the
// current burst asked for a seek.
type debouncer struct {
	d *schedule.Debouncer

	mu      sync.Mutex
	pending Reason
	seq     uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{d: schedule.NewDebouncer(delay)}
}

// trigger folds r into the burst and schedules fn with the burst's reason
// as of this call. Only the newest trigger's callback clears the burst.
func (d *debouncer) trigger(r Reason, fn func(Reason)) {
	d.mu.Lock()
	if d.pending == "" || !d.pending.Seeks() {
		d.pending = r
	}
	d.seq++
	seq, want := d.seq, d.pending
	d.mu.Unlock()

	d.d.Trigger(func() {
		d.mu.Lock()
		if d.seq == seq {
			d.pending = ""
		}
		d.mu.Unlock()
		fn(want)
	})
}

func (d *debouncer) cancel() {
	d.d.Cancel()
	d.mu.Lock()
	d.pending = ""
	d.mu.Unlock()
}
