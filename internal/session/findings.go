package session

import (
	"context"
	"fmt"

	"github.com/Pusher91/truderwatch/internal/autoseek"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/state"
)

// PagerAction is a user pager control.
type PagerAction string

const (
	PageFirst  PagerAction = "first"
	PagePrev   PagerAction = "prev"
	PageNext   PagerAction = "next"
	PageReload PagerAction = "reload"
	PageMore   PagerAction = "more"
)

// Page runs a pager control. Any pager control leaves stream mode.
func (s *Session) Page(ctx context.Context, action PagerAction) (findings.View, error) {
	s.Pager.SetMode(state.ModePaged)

	var err error
	switch action {
	case PageFirst:
		_, err = s.Pager.LoadFirstPage(ctx, 0)
	case PagePrev:
		_, err = s.Pager.LoadPrevPage(ctx)
	case PageNext:
		_, err = s.Pager.LoadNextPage(ctx)
	case PageReload:
		_, err = s.Pager.Reload(ctx)
	case PageMore:
		_, err = s.Pager.AppendNextPage(ctx)
	default:
		err = fmt.Errorf("unknown pager action %q", action)
	}
	v := s.RenderFindings(ctx)
	return v, err
}

// SetPageSize changes the page size and reloads from the first page.
func (s *Session) SetPageSize(ctx context.Context, limit int) (findings.View, error) {
	s.Pager.SetMode(state.ModePaged)
	_, err := s.Pager.LoadFirstPage(ctx, limit)
	return s.RenderFindings(ctx), err
}

// FilterField names one findings filter input.
type FilterField string

const (
	FilterSearch        FilterField = "search"
	FilterStatusInclude FilterField = "status_include"
	FilterStatusExclude FilterField = "status_exclude"
	FilterLengthInclude FilterField = "length_include"
	FilterLengthExclude FilterField = "length_exclude"
)

func (f FilterField) reason() autoseek.Reason {
	return autoseek.Reason(f)
}

// SetFilter stores new filter text, re-renders the buffered rows at once and
// schedules a debounced server-side reload.
func (s *Session) SetFilter(ctx context.Context, field FilterField, raw string) (findings.View, error) {
	changed := false
	var err error
	s.store.Update(func(st *state.State) {
		switch field {
		case FilterSearch:
			changed = st.Filter.SetSearch(raw)
		case FilterStatusInclude:
			changed = st.Filter.SetStatusInclude(raw)
		case FilterStatusExclude:
			changed = st.Filter.SetStatusExclude(raw)
		case FilterLengthInclude:
			changed = st.Filter.SetLengthInclude(raw)
		case FilterLengthExclude:
			changed = st.Filter.SetLengthExclude(raw)
		default:
			err = fmt.Errorf("unknown filter %q", field)
		}
	})
	if err != nil {
		return findings.View{}, err
	}

	v := s.RenderFindings(ctx)
	if changed {
		s.Seek.FiltersChanged(ctx, field.reason())
	}
	return v, nil
}

// ClearFilters empties every filter input.
func (s *Session) ClearFilters(ctx context.Context) findings.View {
	s.store.Update(func(st *state.State) {
		st.Filter.SetSearch("")
		st.Filter.SetStatusInclude("")
		st.Filter.SetStatusExclude("")
		st.Filter.SetLengthInclude("")
		st.Filter.SetLengthExclude("")
	})
	v := s.RenderFindings(ctx)
	s.Seek.FiltersChanged(ctx, autoseek.ReasonClear)
	return v
}

// RenderFindings builds the findings view and notifies the presentation
// layer. A newly empty paged view with more data behind it triggers an
// auto-seek.
func (s *Session) RenderFindings(ctx context.Context) findings.View {
	v, emptyNew := findings.Render(s.store)
	s.emit(domain.SignalFindings, domain.SignalPager)
	if emptyNew {
		s.Seek.FiltersChanged(ctx, autoseek.ReasonPageEmpty)
	}
	return v
}

// SelectTarget narrows the request log to one target and refreshes it.
func (s *Session) SelectTarget(ctx context.Context, target string) error {
	s.store.Update(func(st *state.State) { st.SelectedTarget = target })
	s.emit(domain.SignalServers, domain.SignalProbes)

	_, err := s.Logs.Refresh(ctx, 0)
	s.emit(domain.SignalProbes)
	return err
}
