package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
)

func probe(i int) domain.Probe {
	return domain.Probe{
		Target: "http://h",
		Path:   fmt.Sprintf("/p%d", i),
		Status: 404,
		At:     fmt.Sprintf("2024-01-01T00:00:%02dZ", i%60),
	}
}

func TestNew_Defaults(t *testing.T) {
	st := New().Snapshot()

	require.Equal(t, ModePaged, st.Findings.Mode)
	require.Nil(t, st.Findings.TotalAll)
	require.False(t, st.Findings.TotalLowerBound)
	require.Equal(t, domain.FirstCursor, st.Findings.Cursor)
	require.Empty(t, st.Findings.PrevCursors)
	require.Equal(t, DefaultStreamMax, st.Findings.StreamMax)
	require.Equal(t, DefaultFindingsLimit, st.Findings.Limit)
	require.Equal(t, DefaultMaxProbes, st.MaxProbes)
	require.Empty(t, st.Servers)
	require.Zero(t, st.ProbeCount())
}

func TestAddProbe_Dedup(t *testing.T) {
	var st State = newState()

	p := probe(1)
	require.True(t, st.AddProbe(p))
	require.False(t, st.AddProbe(p))

	same := p
	same.DurationMs = 99
	require.False(t, st.AddProbe(same), "duration is not part of the identity")

	viaURL := domain.Probe{URL: "http://h/p1", Status: 404, At: p.At}
	require.False(t, st.AddProbe(viaURL), "url matches target+path")

	require.Equal(t, 1, st.ProbeCount())
}

func TestAddProbe_EvictsOldest(t *testing.T) {
	st := newState()
	st.MaxProbes = 5

	for i := 0; i < 8; i++ {
		require.True(t, st.AddProbe(probe(i)))
	}

	require.Equal(t, 5, st.ProbeCount())
	got := st.Probes(0)
	require.Equal(t, "/p7", got[0].Path)
	require.Equal(t, "/p3", got[4].Path)

	// Evicted keys are forgotten, kept keys are still deduplicated.
	require.True(t, st.AddProbe(probe(0)))
	require.False(t, st.AddProbe(probe(7)))
	require.Len(t, st.probeSeen, st.ProbeCount())
}

func TestProbes_Limit(t *testing.T) {
	st := newState()
	for i := 0; i < 4; i++ {
		st.AddProbe(probe(i))
	}
	got := st.Probes(2)
	require.Len(t, got, 2)
	require.Equal(t, "/p3", got[0].Path)
	require.Equal(t, "/p2", got[1].Path)
}

func TestEnsureServer(t *testing.T) {
	st := newState()

	a := st.EnsureServer("http://a")
	require.Equal(t, domain.HostStatusQueued, a.Status)
	a.Findings = 3

	again := st.EnsureServer("http://a")
	require.Same(t, a, again)
	require.EqualValues(t, 3, again.Findings)

	st.EnsureServer("http://b")
	require.Equal(t, []string{"http://a", "http://b"}, st.ServerTargets())
}

func TestPushStream_Bounded(t *testing.T) {
	f := Findings{StreamMax: 3}
	for i := 0; i < 4; i++ {
		f.PushStream(domain.Finding{Path: fmt.Sprintf("/%d", i)})
	}
	require.Len(t, f.Stream, 3)
	require.Equal(t, "/3", f.Stream[0].Path)
	require.Equal(t, "/1", f.Stream[2].Path)
}

func TestReset_KeepsScanIndependentFields(t *testing.T) {
	s := New()
	s.Update(func(st *State) {
		st.ScanID = "abc"
		st.Verbose = true
		st.Conn = ConnConnected
		st.Scans = []domain.ScanSummary{{ID: "abc"}}
		st.Findings.Limit = 200
		st.Findings.Mode = ModeStream
		st.Findings.Cursor = "900"
		st.Findings.PrevCursors = []domain.Cursor{"0"}
		st.SetTotal(10)
		st.Filter.SetStatusExclude("4xx")
		st.EnsureServer("http://a")
		st.AddProbe(probe(1))
		st.SelectedTarget = "http://a"
	})

	s.Reset()
	st := s.Snapshot()

	require.Equal(t, "abc", st.ScanID)
	require.True(t, st.Verbose)
	require.Equal(t, ConnConnected, st.Conn)
	require.Len(t, st.Scans, 1)
	require.Equal(t, 200, st.Findings.Limit)

	require.Equal(t, ModePaged, st.Findings.Mode)
	require.Equal(t, domain.FirstCursor, st.Findings.Cursor)
	require.Empty(t, st.Findings.PrevCursors)
	require.Nil(t, st.Findings.TotalAll)
	require.Empty(t, st.Filter.Status.ExcludeText)
	require.Empty(t, st.Servers)
	require.Zero(t, st.ProbeCount())
	require.Empty(t, st.SelectedTarget)
}

func TestSnapshot_IsDetached(t *testing.T) {
	s := New()
	s.Update(func(st *State) {
		st.EnsureServer("http://a").Findings = 1
		st.Findings.Items = []domain.Finding{{Status: 200}}
	})

	snap := s.Snapshot()
	s.Update(func(st *State) {
		st.Servers["http://a"].Findings = 2
		st.Findings.Items[0].Status = 500
	})

	require.EqualValues(t, 1, snap.Servers["http://a"].Findings)
	require.Equal(t, 200, snap.Findings.Items[0].Status)
}

func TestSnapshot_ProbeAccessors(t *testing.T) {
	s := New()
	s.Update(func(st *State) {
		for i := 0; i < 3; i++ {
			st.AddProbe(probe(i))
		}
	})

	require.Equal(t, 3, s.Snapshot().ProbeCount())
	got := s.Snapshot().Probes(1)
	require.Len(t, got, 1)
	require.Equal(t, "/p2", got[0].Path)
}

func TestUpsertScanHead(t *testing.T) {
	st := newState()
	st.Scans = []domain.ScanSummary{{ID: "a"}, {ID: "b"}}
	st.UpsertScanHead(domain.ScanSummary{ID: "b", Active: true})

	require.Equal(t, "b", st.Scans[0].ID)
	require.True(t, st.Scans[0].Active)
	require.Len(t, st.Scans, 2)
	require.NotNil(t, st.ScanByID("a"))
	require.Nil(t, st.ScanByID(""))
}
