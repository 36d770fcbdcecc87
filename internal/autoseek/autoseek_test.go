package autoseek

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/state"
)

const scanID = "0123456789abcdef0123456789abcdef"

// pagedSource serves len(counts) pages; page i has counts[i] items with
// status 200, or 404 items when the count is negative.
type pagedSource struct {
	counts []int
	calls  atomic.Int32
	gate   chan struct{}
}

func (s *pagedSource) Findings(_ context.Context, _ string, cursor domain.Cursor, _ int, _ domain.FindingsQuery) (domain.Page[domain.Finding], error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	i, _ := strconv.Atoi(cursor.String())
	next := i + 1
	if next >= len(s.counts) {
		next = i
	}
	n, status := s.counts[i], 200
	if n < 0 {
		n, status = -n, 404
	}
	items := make([]domain.Finding, n)
	for k := range items {
		items[k] = domain.Finding{Target: "http://h", Path: "/" + strconv.Itoa(k), Status: status}
	}
	return domain.Page[domain.Finding]{Items: items, NextCursor: domain.Cursor(strconv.Itoa(next))}, nil
}

func setup(t *testing.T, src *pagedSource, opts Options) (*Controller, *state.Store) {
	t.Helper()
	st := state.New()
	st.Update(func(s *state.State) { s.ScanID = scanID })
	p := findings.NewPager(st, src, zerolog.Nop())
	opts.Logger = zerolog.Nop()
	return New(st, p, opts), st
}

func TestReasonSeeks(t *testing.T) {
	require.True(t, ReasonStatusExclude.Seeks())
	require.True(t, ReasonLengthExclude.Seeks())
	require.True(t, ReasonPageEmpty.Seeks())
	require.False(t, ReasonSearch.Seeks())
	require.False(t, ReasonStatusInclude.Seeks())
	require.False(t, ReasonClear.Seeks())
}

func TestRun_SeeksToFirstNonEmptyPage(t *testing.T) {
	src := &pagedSource{counts: []int{0, 0, 0, 3, 3}}
	c, st := setup(t, src, Options{MaxPages: 10})

	out, err := c.Run(context.Background(), ReasonPageEmpty)
	require.NoError(t, err)
	require.True(t, out.Reloaded)
	require.True(t, out.Seek.Found)
	require.Equal(t, 3, out.Seek.Pages)

	s := st.Snapshot()
	require.Equal(t, domain.Cursor("3"), s.Findings.Cursor)
	require.Len(t, s.Findings.Items, 3)
	require.EqualValues(t, 4, src.calls.Load(), "no fetch past the first match")
}

func TestRun_PageBudget(t *testing.T) {
	src := &pagedSource{counts: []int{0, 0, 0, 0, 0, 0, 1}}
	c, _ := setup(t, src, Options{MaxPages: 2})

	out, err := c.Run(context.Background(), ReasonStatusExclude)
	require.NoError(t, err)
	require.False(t, out.Seek.Found)
	require.Equal(t, 2, out.Seek.Pages)
	require.EqualValues(t, 3, src.calls.Load())
}

func TestRun_ClientFilterHidesPage(t *testing.T) {
	// Pages of 404s are hidden by the exclude filter even though they are
	// not empty on the wire.
	src := &pagedSource{counts: []int{-2, -2, 2}}
	c, st := setup(t, src, Options{})
	st.Update(func(s *state.State) { s.Filter.SetStatusExclude("404") })

	out, err := c.Run(context.Background(), ReasonStatusExclude)
	require.NoError(t, err)
	require.True(t, out.Seek.Found)
	require.Equal(t, domain.Cursor("2"), st.Snapshot().Findings.Cursor)
}

func TestRun_NonSeekingReasonOnlyReloads(t *testing.T) {
	src := &pagedSource{counts: []int{0, 3}}
	c, st := setup(t, src, Options{})

	out, err := c.Run(context.Background(), ReasonSearch)
	require.NoError(t, err)
	require.True(t, out.Reloaded)
	require.False(t, out.Seek.Advanced)
	require.Equal(t, domain.FirstCursor, st.Snapshot().Findings.Cursor)
}

func TestRun_Guards(t *testing.T) {
	t.Run("stream mode", func(t *testing.T) {
		src := &pagedSource{counts: []int{0, 3}}
		c, st := setup(t, src, Options{})
		st.Update(func(s *state.State) { s.Findings.Mode = state.ModeStream })

		out, err := c.Run(context.Background(), ReasonPageEmpty)
		require.NoError(t, err)
		require.False(t, out.Ran)
		require.Zero(t, src.calls.Load())
	})

	t.Run("no scan", func(t *testing.T) {
		src := &pagedSource{counts: []int{0, 3}}
		c, st := setup(t, src, Options{})
		st.Update(func(s *state.State) { s.ScanID = "" })

		out, err := c.Run(context.Background(), ReasonPageEmpty)
		require.NoError(t, err)
		require.False(t, out.Ran)
	})

	t.Run("in flight", func(t *testing.T) {
		src := &pagedSource{counts: []int{1}, gate: make(chan struct{})}
		c, _ := setup(t, src, Options{})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Run(context.Background(), ReasonSearch)
		}()
		require.Eventually(t, c.Running, time.Second, time.Millisecond)

		_, err := c.Run(context.Background(), ReasonSearch)
		require.ErrorIs(t, err, errBusy)

		close(src.gate)
		wg.Wait()
		require.False(t, c.Running())
	})
}

func TestFiltersChanged_DebouncesBurst(t *testing.T) {
	src := &pagedSource{counts: []int{0, 0, 2}}
	var notified atomic.Int32
	c, st := setup(t, src, Options{
		Debounce: 20 * time.Millisecond,
		Notifier: domain.NotifyFunc(func(domain.Signal) { notified.Add(1) }),
	})
	ctx := context.Background()

	c.FiltersChanged(ctx, ReasonSearch)
	c.FiltersChanged(ctx, ReasonStatusExclude)
	c.FiltersChanged(ctx, ReasonSearch)

	require.Eventually(t, func() bool {
		return st.Snapshot().Findings.Cursor == "2"
	}, time.Second, 2*time.Millisecond, "seeking reason in the burst wins")
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 3, src.calls.Load())
	require.NotZero(t, notified.Load())
}

func TestDebouncer_ReasonFixedAtTrigger(t *testing.T) {
	d := newDebouncer(0)

	var (
		mu  sync.Mutex
		got []Reason
	)
	record := func(r Reason) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}

	// Zero delay makes each callback race the next trigger.
	for i := 0; i < 200; i++ {
		d.trigger(ReasonStatusExclude, record)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range got {
		require.Equal(t, ReasonStatusExclude, r)
	}
}

func TestDebouncer_SeekingReasonWinsBurst(t *testing.T) {
	d := newDebouncer(5 * time.Millisecond)
	fired := make(chan Reason, 2)

	d.trigger(ReasonStatusExclude, func(r Reason) { fired <- r })
	d.trigger(ReasonSearch, func(r Reason) { fired <- r })

	select {
	case r := <-fired:
		require.Equal(t, ReasonStatusExclude, r)
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}

	d.trigger(ReasonSearch, func(r Reason) { fired <- r })
	select {
	case r := <-fired:
		require.Equal(t, ReasonSearch, r)
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
}

func TestCancel(t *testing.T) {
	src := &pagedSource{counts: []int{1}}
	c, _ := setup(t, src, Options{Debounce: 20 * time.Millisecond})

	c.FiltersChanged(context.Background(), ReasonSearch)
	c.Cancel()
	time.Sleep(60 * time.Millisecond)
	require.Zero(t, src.calls.Load())
}
