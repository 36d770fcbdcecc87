package findings

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/filter"
	"github.com/Pusher91/truderwatch/internal/state"
)

// View is the renderable findings table and pager state.
type View struct {
	Mode      state.Mode
	Rows      []domain.Finding
	PageTotal int
	Shown     int

	TotalText string
	CountText string
	PagerText string

	Page    int
	HasPrev bool
	HasNext bool

	StatusBad     string
	LengthBad     string
	KnownStatuses []int

	// EmptyPage is a paged view with nothing visible while more pages exist.
	EmptyPage bool
	EmptyKey  string
}

// TotalText is "N", "N+" for a lower bound, or empty when unknown.
func TotalText(f *state.Findings) string {
	if f.TotalAll == nil || *f.TotalAll < 0 {
		return ""
	}
	s := strconv.FormatInt(*f.TotalAll, 10)
	if f.TotalLowerBound {
		s += "+"
	}
	return s
}

// BuildView evaluates the filters over the buffered records. Stored data is
// never pruned.
func BuildView(st *state.State) View {
	f := &st.Findings
	items := f.Buffer()
	rows := st.Filter.Matcher().Filter(items)

	v := View{
		Mode:      f.Mode,
		Rows:      rows,
		PageTotal: len(items),
		Shown:     len(rows),
		TotalText: TotalText(f),
		Page:      len(f.PrevCursors) + 1,
		HasPrev:   len(f.PrevCursors) > 0,
		HasNext:   f.HasMore,
		StatusBad: filter.BadSummary(st.Filter.Status.Bad()),
		LengthBad: filter.BadSummary(st.Filter.Length.Bad()),
	}

	total := v.TotalText
	if total == "" {
		total = strconv.Itoa(v.PageTotal)
	}
	v.CountText = total + " total"

	if f.Mode == state.ModeStream {
		max := f.StreamMax
		if max <= 0 {
			max = state.DefaultStreamMax
		}
		v.PagerText = "Live (latest " + strconv.Itoa(max) + ")"
		v.HasPrev, v.HasNext = false, false
	} else {
		v.PagerText = "Page " + strconv.Itoa(v.Page) + " | " + strconv.Itoa(len(f.Items)) + " items"
	}

	v.KnownStatuses = make([]int, 0, len(f.KnownStatuses))
	for s := range f.KnownStatuses {
		v.KnownStatuses = append(v.KnownStatuses, s)
	}
	sort.Ints(v.KnownStatuses)

	v.EmptyPage = f.Mode == state.ModePaged && v.Shown == 0 && f.HasMore
	v.EmptyKey = strings.Join([]string{
		f.Cursor.OrFirst().String(),
		st.Filter.Status.ExcludeText,
		st.Filter.Length.ExcludeText,
		st.Filter.Search,
	}, "|")
	return v
}

// Render builds the view and records the shown counts in the store. It
// reports emptyNew when the page is empty-but-not-exhausted for a cursor and
// filter combination that has not been reported before.
func Render(store *state.Store) (v View, emptyNew bool) {
	store.Update(func(st *state.State) {
		f := &st.Findings
		f.NoteStatuses(f.Buffer())
		v = BuildView(st)
		f.LastTotal = v.PageTotal
		f.LastShown = v.Shown

		if !v.EmptyPage {
			f.EmptyKey = ""
			return
		}
		if f.EmptyKey != v.EmptyKey {
			f.EmptyKey = v.EmptyKey
			emptyNew = true
		}
	})
	return v, emptyNew
}
