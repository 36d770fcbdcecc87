package findings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

func TestBuildView_FiltersWithoutPruning(t *testing.T) {
	st := state.New()
	st.Update(func(s *state.State) {
		s.Findings.Items = []domain.Finding{
			{Target: "http://a", Path: "/x", Status: 200, Length: 10},
			{Target: "http://a", Path: "/y", Status: 404, Length: 0},
			{Target: "http://a", Path: "/z", Status: 500, Length: 7},
		}
		s.Filter.SetStatusExclude("4xx 5xx !500")
	})

	v, empty := Render(st)
	require.False(t, empty)
	require.Equal(t, 3, v.PageTotal)
	require.Equal(t, 2, v.Shown)
	require.Equal(t, "3 total", v.CountText)
	require.Equal(t, "Page 1 | 3 items", v.PagerText)
	require.Equal(t, []int{200, 404, 500}, v.KnownStatuses)

	s := st.Snapshot()
	require.Len(t, s.Findings.Items, 3)
	require.Equal(t, 3, s.Findings.LastTotal)
	require.Equal(t, 2, s.Findings.LastShown)
}

func TestBuildView_StreamMode(t *testing.T) {
	st := state.New()
	st.Update(func(s *state.State) {
		s.Findings.Mode = state.ModeStream
		s.Findings.Stream = []domain.Finding{{Status: 200}}
		s.Findings.HasMore = true
		s.SetTotal(42)
	})

	v, empty := Render(st)
	require.False(t, empty)
	require.Equal(t, "Live (latest 500)", v.PagerText)
	require.Equal(t, "42 total", v.CountText)
	require.False(t, v.HasNext)
}

func TestRender_KnownStatusesIncludeCurrentBuffer(t *testing.T) {
	st := state.New()
	st.Update(func(s *state.State) {
		s.Findings.Mode = state.ModeStream
		s.Findings.Stream = []domain.Finding{{Status: 302}}
	})

	v, _ := Render(st)
	require.Equal(t, []int{302}, v.KnownStatuses)

	st.Update(func(s *state.State) { s.Findings.PushStream(domain.Finding{Status: 201}) })
	v, _ = Render(st)
	require.Equal(t, []int{201, 302}, v.KnownStatuses)
}

func TestRender_EmptyPageReportedOncePerKey(t *testing.T) {
	st := state.New()
	st.Update(func(s *state.State) {
		s.Findings.Items = []domain.Finding{{Status: 404}}
		s.Findings.HasMore = true
		s.Filter.SetStatusExclude("404")
	})

	_, empty := Render(st)
	require.True(t, empty)
	_, empty = Render(st)
	require.False(t, empty, "same cursor and filters")

	st.Update(func(s *state.State) { s.Findings.Cursor = "900" })
	_, empty = Render(st)
	require.True(t, empty)

	st.Update(func(s *state.State) { s.Findings.HasMore = false })
	_, empty = Render(st)
	require.False(t, empty)
	require.Empty(t, st.Snapshot().Findings.EmptyKey)
}

func TestBuildView_BadTokens(t *testing.T) {
	st := state.New()
	st.Update(func(s *state.State) {
		s.Filter.SetStatusExclude("4xx oops")
		s.Filter.SetLengthExclude("1-2")
	})
	v, _ := Render(st)
	require.Equal(t, "Invalid token(s): oops", v.StatusBad)
	require.Equal(t, "Invalid token(s): 1-2", v.LengthBad)
}
