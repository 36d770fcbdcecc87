package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

func targets(rows []domain.ServerProgress) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Target)
	}
	return out
}

func serversState(t *testing.T) state.State {
	t.Helper()
	store := state.New()
	store.Update(func(st *state.State) {
		add := func(target string, status domain.HostStatus, checked, total int64, findings, errs int64) {
			sp := st.EnsureServer(target)
			sp.Status = status
			sp.Checked, sp.Total = checked, total
			sp.Findings, sp.Errors = findings, errs
			if total > 0 {
				sp.Percent = int(checked * 100 / total)
			}
			sp.Rate = 5
		}
		add("http://host10.example", domain.HostStatusRunning, 50, 100, 1, 0)
		add("http://host9.example", domain.HostStatusCompleted, 100, 100, 4, 3)
		add("http://10.0.0.20", domain.HostStatusQueued, 0, 0, 0, 0)
		add("https://10.0.0.3:8443", domain.HostStatusPaused, 10, 100, 2, 0)
		st.SelectedTarget = "http://host9.example"
	})
	return store.Snapshot()
}

func TestBuildServersView_DefaultOrder(t *testing.T) {
	st := serversState(t)
	v := BuildServersView(&st, ServerQuery{})

	assert.Equal(t, []string{
		"https://10.0.0.3:8443",
		"http://10.0.0.20",
		"http://host9.example",
		"http://host10.example",
	}, targets(v.Rows))
	assert.Equal(t, 4, v.Count)
	assert.Equal(t, Badges{Running: 1, Queued: 1, Paused: 1, Done: 1}, v.Badges)
	assert.Equal(t, Overall{Percent: 75, Checked: 150, Total: 200, Rate: 10}, v.Overall)
	assert.Equal(t, "http://host9.example", v.Selected)
}

func TestBuildServersView_FiltersAndSorts(t *testing.T) {
	st := serversState(t)

	v := BuildServersView(&st, ServerQuery{Text: "HOST", Sort: SortFindings})
	assert.Equal(t, []string{"http://host9.example", "http://host10.example"}, targets(v.Rows))

	v = BuildServersView(&st, ServerQuery{Status: "error"})
	assert.Equal(t, []string{"http://host9.example"}, targets(v.Rows))

	v = BuildServersView(&st, ServerQuery{Status: "paused"})
	assert.Equal(t, []string{"https://10.0.0.3:8443"}, targets(v.Rows))

	v = BuildServersView(&st, ServerQuery{Sort: SortProgress})
	require.Len(t, v.Rows, 4)
	assert.Equal(t, "http://host9.example", v.Rows[0].Target)
	assert.Equal(t, 4, v.Count)
}

func TestBuildServersView_RecentFirst(t *testing.T) {
	store := state.New()
	now := time.Now()
	store.Update(func(st *state.State) {
		st.EnsureServer("http://a").LastProbeAt = now.Add(-time.Minute)
		st.EnsureServer("http://b").LastProbeAt = now
		st.EnsureServer("http://c")
	})
	st := store.Snapshot()

	v := BuildServersView(&st, ServerQuery{Sort: SortRecent})
	assert.Equal(t, []string{"http://b", "http://a", "http://c"}, targets(v.Rows))
}

func TestNaturalCompare(t *testing.T) {
	assert.Negative(t, naturalCompare("host2", "host10"))
	assert.Positive(t, naturalCompare("host10", "host2"))
	assert.Zero(t, naturalCompare("a007", "a7"))
	assert.Negative(t, naturalCompare("abc", "abd"))
	assert.Negative(t, naturalCompare("ab", "abc"))
}

func TestBuildRequestLogView(t *testing.T) {
	store := state.New()
	store.Update(func(st *state.State) {
		st.Verbose = true
		st.AddProbe(domain.Probe{Target: "http://www.A.example", Path: "/1", Status: 200, At: "1"})
		st.AddProbe(domain.Probe{Target: "http://b.example", Path: "/2", Status: 200, At: "2"})
		st.AddProbe(domain.Probe{URL: "https://a.example:8443/3", Status: 404, At: "3"})
	})

	st := store.Snapshot()
	v := BuildRequestLogView(&st, 2)
	assert.True(t, v.Verbose)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "3", v.Rows[0].At)
	assert.Equal(t, "2", v.Rows[1].At)

	store.Update(func(st *state.State) { st.SelectedTarget = "a.example" })
	st = store.Snapshot()
	v = BuildRequestLogView(&st, 0)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "3", v.Rows[0].At)
	assert.Equal(t, "1", v.Rows[1].At)
	assert.Equal(t, "a.example", v.Selected)
}
