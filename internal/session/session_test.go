package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/client"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/prefs"
	"github.com/Pusher91/truderwatch/internal/remotetest"
	"github.com/Pusher91/truderwatch/internal/state"
)

const waitFor = 3 * time.Second

func newSession(t *testing.T, srv *remotetest.Server, opts Options) *Session {
	t.Helper()
	c, err := client.New(srv.URL(), client.Options{
		Logger:     zerolog.Nop(),
		HTTPClient: srv.Client(),
		Retry:      20 * time.Millisecond,
	})
	require.NoError(t, err)

	opts.Logger = zerolog.Nop()
	if opts.TailInterval == 0 {
		opts.TailInterval = 10 * time.Millisecond
	}
	if opts.SeekDebounce == 0 {
		opts.SeekDebounce = 10 * time.Millisecond
	}
	s := New(c, opts)
	t.Cleanup(s.Close)
	return s
}

func seed(t *testing.T, srv *remotetest.Server, id string, statuses ...int) {
	t.Helper()
	fs := make([]domain.Finding, 0, len(statuses))
	for i, st := range statuses {
		fs = append(fs, domain.Finding{
			ScanID: id,
			Target: "http://a.example",
			Path:   fmt.Sprintf("/p%02d", i),
			Status: st,
			Length: int64(10 * (i + 1)),
		})
	}
	require.NoError(t, srv.AppendFindings(id, fs...))
}

func countExact(reqs []string, uri string) int {
	n := 0
	for _, r := range reqs {
		if r == uri {
			n++
		}
	}
	return n
}

func snapshot(s *Session) state.State { return s.Store().Snapshot() }

func TestPickDefaultScanID(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.ScanSummary
		want  string
	}{
		{"empty", nil, ""},
		{"first listed", []domain.ScanSummary{{ID: "a", Status: "completed"}, {ID: "b"}}, "a"},
		{"active running wins", []domain.ScanSummary{
			{ID: "a", Status: "completed"},
			{ID: "b", Status: "running", Active: false},
			{ID: "c", Status: "running", Active: true},
		}, "c"},
		{"paused is not preferred", []domain.ScanSummary{
			{ID: "a", Status: "stopped"},
			{ID: "b", Status: "paused", Active: true},
		}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickDefaultScanID(tt.items))
		})
	}
}

func TestOpen_SelectsActiveRunningScan(t *testing.T) {
	srv := remotetest.New(t)
	live := srv.NewScan(domain.ScanStatusRunning, true, "http://a.example", "http://b.example")
	srv.NewScan(domain.ScanStatusCompleted, false, "http://c.example")
	seed(t, srv, live.ID, 200, 301, 404)
	require.NoError(t, srv.AppendProbes(live.ID,
		domain.Probe{Target: "http://a.example", Path: "/x", Error: "timeout", At: "2026-01-01T00:00:00Z"},
	))

	s := newSession(t, srv, Options{})
	require.NoError(t, s.Open(context.Background(), ""))

	st := snapshot(s)
	assert.Equal(t, live.ID, st.ScanID)
	assert.Equal(t, state.ConnConnected, st.Conn)
	assert.Len(t, st.Scans, 2)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, st.ServerTargets())
	assert.Len(t, st.Findings.Items, 3)
	require.NotNil(t, st.Findings.TotalAll)
	assert.EqualValues(t, 3, *st.Findings.TotalAll)
	assert.Equal(t, 1, st.ProbeCount())
	assert.True(t, s.Logs.Tailing())
}

func TestSelectScan_CompletedScanSeedsHostsWithoutTail(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	srv.UpdateMeta(meta.ID, func(m *domain.Meta) {
		m.Verbose = true
		m.Hosts["http://a.example"] = domain.HostMeta{
			Target: "http://a.example", Status: domain.HostStatusCompleted, Checked: 50, Total: 200, Errors: 2,
		}
	})
	seed(t, srv, meta.ID, 200, 200)

	s := newSession(t, srv, Options{})
	_, err := s.RefreshScans(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.SelectScan(context.Background(), meta.ID))

	st := snapshot(s)
	assert.True(t, st.Verbose)
	sp := st.Servers["http://a.example"]
	require.NotNil(t, sp)
	assert.Equal(t, domain.HostStatusCompleted, sp.Status)
	assert.Equal(t, 25, sp.Percent)
	assert.EqualValues(t, 2, sp.Errors)
	assert.False(t, s.Logs.Tailing())
	assert.Len(t, srv.Requests("/api/scans/log"), 1)
}

func TestSelectScan_RejectsInvalidID(t *testing.T) {
	srv := remotetest.New(t)
	s := newSession(t, srv, Options{})

	assert.Error(t, s.SelectScan(context.Background(), "nope"))
	assert.Empty(t, srv.Requests(""))
}

func TestSelectScan_StateFailureKeepsPreviousScan(t *testing.T) {
	srv := remotetest.New(t)
	a := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	b := srv.NewScan(domain.ScanStatusCompleted, false, "http://b.example")

	s := newSession(t, srv, Options{})
	require.NoError(t, s.SelectScan(context.Background(), a.ID))

	srv.Fail("/api/scans/state", http.StatusInternalServerError, "internal_error", "boom")
	err := s.SelectScan(context.Background(), b.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, a.ID, s.Store().ScanID())
}

func TestOnScanDone_OtherScanOnlyRefreshesList(t *testing.T) {
	srv := remotetest.New(t)
	a := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	b := srv.NewScan(domain.ScanStatusRunning, true, "http://b.example")

	s := newSession(t, srv, Options{})
	require.NoError(t, s.SelectScan(context.Background(), a.ID))
	findingsBefore := len(srv.Requests("/api/scans/findings"))
	listBefore := countExact(srv.Requests(""), "/api/scans")

	require.NoError(t, s.OnScanDone(context.Background(), domain.ScanControlMsg{ScanID: b.ID}))

	assert.Len(t, srv.Requests("/api/scans/findings"), findingsBefore)
	assert.Equal(t, listBefore+1, countExact(srv.Requests(""), "/api/scans"))
	assert.Len(t, snapshot(s).Scans, 2)
}

func TestOnScanDone_ReturnsToFirstPageAndStopsTail(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusRunning, true, "http://a.example")
	seed(t, srv, meta.ID, 200, 200, 200)

	s := newSession(t, srv, Options{FindingsLimit: 2})
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, meta.ID))
	require.True(t, s.Logs.Tailing())

	_, err := s.Page(ctx, PageNext)
	require.NoError(t, err)
	assert.Len(t, snapshot(s).Findings.PrevCursors, 1)

	srv.UpdateMeta(meta.ID, func(m *domain.Meta) { m.Status = domain.ScanStatusCompleted })
	srv.SetActive(meta.ID, false)

	require.NoError(t, s.OnScanDone(ctx, domain.ScanControlMsg{ScanID: meta.ID}))

	st := snapshot(s)
	assert.Empty(t, st.Findings.PrevCursors)
	assert.Len(t, st.Findings.Items, 2)
	assert.Equal(t, state.ModePaged, st.Findings.Mode)
	assert.False(t, s.Logs.Tailing())
	assert.Equal(t, domain.ScanStatusCompleted, st.ScanByID(meta.ID).Status)
}

func TestAct_DeleteSelectedMovesToDefault(t *testing.T) {
	srv := remotetest.New(t)
	a := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	b := srv.NewScan(domain.ScanStatusCompleted, false, "http://b.example")
	ctx := context.Background()

	s := newSession(t, srv, Options{})
	require.NoError(t, s.Open(ctx, b.ID))

	require.NoError(t, s.Act(ctx, domain.ActionDelete, b.ID))
	st := snapshot(s)
	assert.Equal(t, a.ID, st.ScanID)
	assert.Equal(t, []string{"http://a.example"}, st.ServerTargets())

	require.NoError(t, s.Act(ctx, domain.ActionDelete, a.ID))
	st = snapshot(s)
	assert.Empty(t, st.ScanID)
	assert.Empty(t, st.Scans)
	assert.Empty(t, st.Servers)
	assert.Empty(t, st.Findings.Items)
}

func TestAct_ConflictLeavesStateAlone(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusRunning, true, "http://a.example")
	ctx := context.Background()

	s := newSession(t, srv, Options{})
	require.NoError(t, s.Open(ctx, meta.ID))

	err := s.Act(ctx, domain.ActionDelete, meta.ID)
	require.Error(t, err)
	assert.Equal(t, meta.ID, s.Store().ScanID())
}

func TestAct_PauseReloadsSelectedScan(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusRunning, true, "http://a.example")
	ctx := context.Background()

	s := newSession(t, srv, Options{})
	require.NoError(t, s.Open(ctx, meta.ID))

	require.NoError(t, s.Act(ctx, domain.ActionPause, meta.ID))
	st := snapshot(s)
	assert.Equal(t, domain.ScanStatusPaused, st.ScanByID(meta.ID).Status)
	assert.True(t, s.Logs.Tailing())

	require.NoError(t, s.Act(ctx, domain.ActionStop, meta.ID))
	assert.False(t, s.Logs.Tailing())
}

func TestSetFilter_ReloadsWithServerQuery(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	seed(t, srv, meta.ID, 404, 404, 404, 404, 200)
	ctx := context.Background()

	s := newSession(t, srv, Options{FindingsLimit: 2})
	require.NoError(t, s.Open(ctx, meta.ID))

	v, err := s.SetFilter(ctx, FilterStatusExclude, "404")
	require.NoError(t, err)
	assert.Empty(t, v.Rows)

	require.Eventually(t, func() bool {
		for _, r := range srv.Requests("/api/scans/findings") {
			if strings.Contains(r, "statusExclude=404") {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		st := snapshot(s)
		return len(st.Findings.Items) == 1 && st.Findings.Items[0].Status == 200
	}, waitFor, 5*time.Millisecond)

	_, err = s.SetFilter(ctx, FilterField("bogus"), "x")
	assert.Error(t, err)
}

func TestSetFilter_InvalidTokensReported(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	s := newSession(t, srv, Options{})
	require.NoError(t, s.Open(context.Background(), meta.ID))

	v, err := s.SetFilter(context.Background(), FilterStatusInclude, "200,abc")
	require.NoError(t, err)
	assert.Contains(t, v.StatusBad, "abc")
}

func TestRefreshNetInfo(t *testing.T) {
	srv := remotetest.New(t)
	srv.SetNetInfo(domain.NetInfo{LocalIPv4s: []string{"10.1.1.1"}, PublicIPv4: "198.51.100.7", PublicIPv4Enabled: true})
	s := newSession(t, srv, Options{NetInfoPublic: true})
	ctx := context.Background()

	require.NoError(t, s.RefreshNetInfo(ctx))
	ni := snapshot(s).NetInfo
	require.NotNil(t, ni)
	assert.Equal(t, "198.51.100.7", ni.PublicIPv4)

	srv.Fail("/api/netinfo", http.StatusBadGateway, "upstream", "down")
	require.Error(t, s.RefreshNetInfo(ctx))
	assert.Nil(t, snapshot(s).NetInfo)
}

func TestRun_FollowsEventStream(t *testing.T) {
	srv := remotetest.NewWith(t, remotetest.Options{Retry: 20 * time.Millisecond})
	meta := srv.NewScan(domain.ScanStatusRunning, true, "http://a.example")
	seed(t, srv, meta.ID, 200)

	var signals []domain.Signal
	sigCh := make(chan domain.Signal, 1024)
	s := newSession(t, srv, Options{
		Notifier: domain.NotifyFunc(func(sig domain.Signal) {
			select {
			case sigCh <- sig:
			default:
			}
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "") }()

	require.Eventually(t, func() bool {
		return s.Store().ScanID() == meta.ID && s.Logs.Tailing() && srv.Subscribers() == 1
	}, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return snapshot(s).NetInfo != nil }, waitFor, 5*time.Millisecond)

	srv.Emit("host_progress", domain.HostProgressMsg{
		ScanID: meta.ID, Target: "http://a.example", Percent: 40, RateRPS: 12, Checked: 40, Total: 100,
	})
	srv.Emit("finding", domain.Finding{ScanID: meta.ID, Target: "http://a.example", Path: "/new", Status: 200})

	require.Eventually(t, func() bool {
		st := snapshot(s)
		sp := st.Servers["http://a.example"]
		return sp != nil && sp.Percent == 40 && st.Findings.TotalAll != nil && *st.Findings.TotalAll == 2
	}, waitFor, 5*time.Millisecond)

	srv.UpdateMeta(meta.ID, func(m *domain.Meta) { m.Status = domain.ScanStatusCompleted })
	srv.SetActive(meta.ID, false)
	srv.Emit("scan_done", domain.ScanControlMsg{ScanID: meta.ID})

	require.Eventually(t, func() bool {
		return snapshot(s).Conn == state.ConnScanComplete && !s.Logs.Tailing()
	}, waitFor, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancel")
	}

	for drained := false; !drained; {
		select {
		case sig := <-sigCh:
			signals = append(signals, sig)
		default:
			drained = true
		}
	}
	assert.Contains(t, signals, domain.SignalServers)
	assert.Contains(t, signals, domain.SignalNetInfo)
}

func TestRestore_AppliesFiltersToNextSelectionOnly(t *testing.T) {
	srv := remotetest.New(t)
	meta := srv.NewScan(domain.ScanStatusCompleted, false, "http://a.example")
	other := srv.NewScan(domain.ScanStatusCompleted, false, "http://b.example")
	seed(t, srv, meta.ID, 404, 200, 404, 200)
	seed(t, srv, other.ID, 404)
	ctx := context.Background()

	s := newSession(t, srv, Options{})
	s.Restore(prefs.Prefs{PageSize: 2, Filters: prefs.Filters{StatusExclude: "404"}})
	require.NoError(t, s.Open(ctx, meta.ID))

	st := snapshot(s)
	assert.Equal(t, 2, st.Findings.Limit)
	assert.Equal(t, "404", st.Filter.Status.ExcludeText)
	require.Len(t, st.Findings.Items, 2)
	for _, it := range st.Findings.Items {
		assert.Equal(t, 200, it.Status)
	}

	got := s.Remembered("http://srv")
	assert.Equal(t, prefs.Prefs{
		Server:   "http://srv",
		LastScan: meta.ID,
		PageSize: 2,
		Filters:  prefs.Filters{StatusExclude: "404"},
	}, got)

	require.NoError(t, s.SelectScan(ctx, other.ID))
	st = snapshot(s)
	assert.Empty(t, st.Filter.Status.ExcludeText)
	assert.Equal(t, 2, st.Findings.Limit)
	assert.Len(t, st.Findings.Items, 1)
}
