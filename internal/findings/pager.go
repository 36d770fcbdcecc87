package findings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

// ErrScanChanged is returned when the selected scan changed while a page
// was in flight. The stale page is dropped.
var ErrScanChanged = errors.New("findings: selected scan changed during fetch")

// Pager is the cursor-paginated view over the remote findings endpoint.
// It owns the cursor, history, buffer and total fields of the store.
// A failed fetch leaves the store untouched.
type Pager struct {
	store *state.Store
	src   domain.FindingsSource
	log   zerolog.Logger
}

func NewPager(store *state.Store, src domain.FindingsSource, log zerolog.Logger) *Pager {
	return &Pager{
		store: store,
		src:   src,
		log:   log.With().Str("component", "findings").Logger(),
	}
}

type request struct {
	scanID string
	cursor domain.Cursor
	limit  int
	query  domain.FindingsQuery
}

// result is a fetched page with hasMore resolved.
type result struct {
	items   []domain.Finding
	next    domain.Cursor
	hasMore bool
	total   *int64
}

func (p *Pager) request(cursor func(f *state.Findings) domain.Cursor) request {
	var r request
	p.store.View(func(st *state.State) {
		r = request{
			scanID: st.ScanID,
			cursor: cursor(&st.Findings).OrFirst(),
			limit:  st.Findings.Limit,
			query:  st.Filter.Query(),
		}
	})
	if r.limit <= 0 {
		r.limit = state.DefaultFindingsLimit
	}
	return r
}

func (p *Pager) fetch(ctx context.Context, r request) (result, error) {
	if r.scanID == "" {
		return result{items: []domain.Finding{}, next: r.cursor}, nil
	}

	page, err := p.src.Findings(ctx, r.scanID, r.cursor, r.limit, r.query)
	if err != nil {
		return result{}, err
	}

	next := page.NextCursor.OrFirst()
	res := result{items: page.Items, next: next, total: page.Total}
	if res.items == nil {
		res.items = []domain.Finding{}
	}
	if page.HasMore != nil {
		res.hasMore = *page.HasMore
	} else {
		res.hasMore = next != r.cursor
	}

	p.log.Debug().
		Str("scan", r.scanID).
		Str("cursor", r.cursor.String()).
		Str("next", next.String()).
		Int("items", len(res.items)).
		Bool("has_more", res.hasMore).
		Msg("page")
	return res, nil
}

// commit applies a fetched page if the scan is still the one it was
// fetched for. apply runs under the store lock.
func (p *Pager) commit(r request, res result, apply func(f *state.Findings)) ([]domain.Finding, error) {
	var (
		items []domain.Finding
		stale bool
	)
	p.store.Update(func(st *state.State) {
		if st.ScanID != r.scanID {
			stale = true
			return
		}
		f := &st.Findings
		apply(f)
		f.NextCursor = res.next
		f.HasMore = res.hasMore
		f.NoteStatuses(res.items)
		reconcileTotal(st, r, res)
		items = f.Items
	})
	if stale {
		p.log.Debug().Str("scan", r.scanID).Msg("dropping page for deselected scan")
		return nil, ErrScanChanged
	}
	return items, nil
}

// reconcileTotal applies a server total when one was sent. Otherwise a known
// total is kept; with none known, an unfiltered first page gives an exact
// count or a lower bound.
func reconcileTotal(st *state.State, r request, res result) {
	f := &st.Findings
	if res.total != nil {
		st.SetTotal(*res.total)
		f.StreamTotal = *res.total
		return
	}
	if f.TotalAll != nil && !f.TotalLowerBound {
		return
	}
	if r.cursor != domain.FirstCursor || !r.query.IsZero() {
		return
	}

	n := int64(len(res.items))
	if f.TotalAll != nil && *f.TotalAll > n {
		return
	}
	f.TotalAll = &n
	f.TotalLowerBound = res.hasMore
}

func (p *Pager) current() []domain.Finding {
	var items []domain.Finding
	p.store.View(func(st *state.State) { items = st.Findings.Items })
	return items
}

// LoadFirstPage fetches from the first cursor with an empty history. limit
// <= 0 keeps the current page size.
func (p *Pager) LoadFirstPage(ctx context.Context, limit int) ([]domain.Finding, error) {
	if limit > 0 {
		p.store.Update(func(st *state.State) { st.Findings.Limit = limit })
	}

	r := p.request(func(*state.Findings) domain.Cursor { return domain.FirstCursor })
	res, err := p.fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.commit(r, res, func(f *state.Findings) {
		f.Cursor = domain.FirstCursor
		f.PrevCursors = nil
		f.Items = res.items
	})
}

// LoadNextPage moves forward to the next cursor, remembering the current one.
func (p *Pager) LoadNextPage(ctx context.Context) ([]domain.Finding, error) {
	var from domain.Cursor
	r := p.request(func(f *state.Findings) domain.Cursor {
		from = f.Cursor.OrFirst()
		return f.NextCursor
	})
	if r.scanID == "" {
		return p.current(), nil
	}

	res, err := p.fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.commit(r, res, func(f *state.Findings) {
		f.PrevCursors = append(f.PrevCursors, from)
		f.Cursor = r.cursor
		f.Items = res.items
	})
}

// LoadPrevPage re-fetches the most recently left cursor. Pages are not
// cached because server-side filters may have changed since.
func (p *Pager) LoadPrevPage(ctx context.Context) ([]domain.Finding, error) {
	depth := 0
	r := p.request(func(f *state.Findings) domain.Cursor {
		depth = len(f.PrevCursors)
		if depth == 0 {
			return f.Cursor
		}
		return f.PrevCursors[depth-1]
	})
	if r.scanID == "" || depth == 0 {
		return p.current(), nil
	}

	res, err := p.fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.commit(r, res, func(f *state.Findings) {
		if n := len(f.PrevCursors); n > 0 {
			f.PrevCursors = f.PrevCursors[:n-1]
		}
		f.Cursor = r.cursor
		f.Items = res.items
	})
}

// Reload re-fetches the current cursor with the current filters.
func (p *Pager) Reload(ctx context.Context) ([]domain.Finding, error) {
	r := p.request(func(f *state.Findings) domain.Cursor { return f.Cursor })
	if r.scanID == "" {
		return p.current(), nil
	}

	res, err := p.fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.commit(r, res, func(f *state.Findings) {
		f.Items = res.items
	})
}

// AppendNextPage grows the buffer with the next page instead of replacing
// it. The page position and history are not changed.
func (p *Pager) AppendNextPage(ctx context.Context) ([]domain.Finding, error) {
	hasMore := false
	r := p.request(func(f *state.Findings) domain.Cursor {
		hasMore = f.HasMore
		return f.NextCursor
	})
	if r.scanID == "" || !hasMore {
		return p.current(), nil
	}

	res, err := p.fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.commit(r, res, func(f *state.Findings) {
		merged := make([]domain.Finding, 0, len(f.Items)+len(res.items))
		merged = append(merged, f.Items...)
		f.Items = append(merged, res.items...)
	})
}

// SetMode switches between the paged and stream views.
func (p *Pager) SetMode(m state.Mode) {
	p.store.Update(func(st *state.State) { st.Findings.Mode = m })
}
