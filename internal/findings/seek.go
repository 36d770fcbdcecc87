package findings

import (
	"context"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

const DefaultSeekPages = 10

type SeekOptions struct {
	// MaxPages bounds how many pages are fetched. <= 0 means DefaultSeekPages.
	MaxPages int
	// MaxItems stops the walk once this many items have been scanned. 0 means
	// no item bound.
	MaxItems int
}

type SeekResult struct {
	Found    bool
	Advanced bool
	Pages    int
	Scanned  int
}

// SeekNextMatch walks forward page by page until match accepts the current
// page, the server reports no more data, or a bound is hit. The current page
// is checked first without fetching.
func (p *Pager) SeekNextMatch(ctx context.Context, match func([]domain.Finding) bool, opts SeekOptions) (SeekResult, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultSeekPages
	}

	var res SeekResult
	scanID, items, hasMore := p.position()
	if scanID == "" {
		return res, nil
	}
	if match(items) {
		res.Found = true
		return res, nil
	}

	for hasMore && res.Pages < opts.MaxPages {
		if opts.MaxItems > 0 && res.Scanned >= opts.MaxItems {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		next, err := p.LoadNextPage(ctx)
		if err != nil {
			return res, err
		}
		res.Advanced = true
		res.Pages++
		res.Scanned += len(next)

		if match(next) {
			res.Found = true
			return res, nil
		}
		_, _, hasMore = p.position()
	}
	return res, nil
}

func (p *Pager) position() (scanID string, items []domain.Finding, hasMore bool) {
	p.store.View(func(st *state.State) {
		scanID = st.ScanID
		items = st.Findings.Items
		hasMore = st.Findings.HasMore
	})
	return scanID, items, hasMore
}
