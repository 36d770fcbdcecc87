package schedule

import (
	"context"
	"sync"
	"time"
)

// Ticker runs one repeating task at a fixed interval. Starting it again
// replaces the running loop; Stop is idempotent and does not wait for an
// in-flight run to finish.
type Ticker struct {
	mu   sync.Mutex
	stop chan struct{}
}

func (t *Ticker) Start(ctx context.Context, interval time.Duration, immediate bool, fn func(context.Context)) {
	if interval <= 0 {
		interval = time.Millisecond
	}

	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go func() {
		if immediate && !stopped(ctx, stop) {
			fn(ctx)
		}

		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				t.clear(stop)
				return
			case <-tk.C:
				if stopped(ctx, stop) {
					return
				}
				fn(ctx)
			}
		}
	}()
}

func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
}

func (t *Ticker) Running() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// clear forgets stop if it is still the active loop.
func (t *Ticker) clear(stop chan struct{}) {
	t.mu.Lock()
	if t.stop == stop {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
