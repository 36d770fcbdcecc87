package session

import (
	"context"
	"fmt"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/state"
)

// RefreshScans replaces the scan list.
func (s *Session) RefreshScans(ctx context.Context) ([]domain.ScanSummary, error) {
	items, err := s.remote.Scans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScanSummary, 0, len(items))
	for _, it := range items {
		out = append(out, it.Summary())
	}
	s.store.Update(func(st *state.State) { st.Scans = out })
	s.emit(domain.SignalScans)
	return append([]domain.ScanSummary(nil), out...), nil
}

// PickDefaultScanID prefers the first active running scan, then the first
// listed one.
func PickDefaultScanID(items []domain.ScanSummary) string {
	for _, it := range items {
		if it.Active && it.Status == domain.ScanStatusRunning {
			return it.ID
		}
	}
	if len(items) > 0 {
		return items[0].ID
	}
	return ""
}

// LoadScanState resets the store to scanID and seeds it from the remote
// scan state: verbose flag, total findings, targets and host progress.
func (s *Session) LoadScanState(ctx context.Context, scanID string) (domain.ScanState, error) {
	ss, err := s.remote.ScanState(ctx, scanID)
	if err != nil {
		return domain.ScanState{}, err
	}

	s.store.Update(func(st *state.State) {
		st.Reset()
		st.ScanID = scanID
		st.Verbose = ss.Meta.Verbose
		st.Findings.Mode = state.ModePaged

		seed := ss.SeedTotal
		if seed == nil {
			if sum := st.ScanByID(scanID); sum != nil {
				n := sum.TotalFindings
				seed = &n
			}
		}
		if seed != nil {
			st.SetTotal(*seed)
			st.Findings.StreamTotal = *seed
		}

		for _, t := range ss.Meta.Targets {
			st.EnsureServer(t)
		}
		for key, h := range ss.Meta.Hosts {
			target := h.Target
			if target == "" {
				target = key
			}
			sp := st.EnsureServer(target)
			if h.Status != "" {
				sp.Status = h.Status
			}
			sp.Checked = h.Checked
			sp.Total = h.Total
			sp.Findings = h.Findings
			sp.Errors = h.Errors
			sp.Percent = 0
			if h.Total > 0 {
				sp.Percent = int(h.Checked * 100 / h.Total)
			}
			sp.Rate = 0
		}

		if sum := st.ScanByID(scanID); sum != nil {
			sum.Active = ss.Active
			if ss.Meta.Status != "" {
				sum.Status = ss.Meta.Status.Normalize()
			}
		}
	})
	s.emit(domain.SignalServers, domain.SignalScans, domain.SignalProbes, domain.SignalFindings, domain.SignalPager)
	return ss, nil
}

// SelectScan switches the view to scanID: scan state, first findings page,
// a bounded log backfill, then a tail if the scan is still live.
func (s *Session) SelectScan(ctx context.Context, scanID string) error {
	if !domain.IsValidScanID(scanID) {
		return fmt.Errorf("invalid scan id %q", scanID)
	}

	s.Logs.StopTail()
	s.Seek.Cancel()

	if _, err := s.LoadScanState(ctx, scanID); err != nil {
		return fmt.Errorf("load scan %s: %w", scanID, err)
	}
	s.store.Update(func(st *state.State) { st.Conn = state.ConnConnected })
	s.emit(domain.SignalConn)
	s.applyPending()

	if _, err := s.Pager.LoadFirstPage(ctx, 0); err != nil {
		return fmt.Errorf("load findings: %w", err)
	}
	s.RenderFindings(ctx)

	if _, err := s.Logs.LoadUntilFull(ctx, s.opts.Backfill); err != nil {
		return fmt.Errorf("load request log: %w", err)
	}
	s.emit(domain.SignalProbes, domain.SignalServers)

	s.UpdateTail(ctx)
	return nil
}

// scanLive reports whether the remote side still drives the scan.
func scanLive(st *state.State, scanID string) bool {
	sum := st.ScanByID(scanID)
	return sum != nil && sum.Active && sum.Status.Live()
}

// UpdateTail starts the log tail for a live selected scan and stops it
// otherwise.
func (s *Session) UpdateTail(ctx context.Context) {
	follow := false
	s.store.View(func(st *state.State) { follow = st.ScanID != "" && scanLive(st, st.ScanID) })
	if !follow {
		s.Logs.StopTail()
		return
	}
	s.Logs.StartTail(ctx, func() {
		s.emit(domain.SignalProbes, domain.SignalServers)
	})
}

// OnScanDone is the reconciler's completion hook: it drains the log, refreshes
// the scan list and returns the findings view to the first page.
func (s *Session) OnScanDone(ctx context.Context, msg domain.ScanControlMsg) error {
	scanID := s.store.ScanID()
	if msg.ScanID != "" && scanID != "" && msg.ScanID != scanID {
		_, err := s.RefreshScans(ctx)
		return err
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	_, err := s.Logs.Refresh(ctx, 0)
	keep(err)
	_, err = s.RefreshScans(ctx)
	keep(err)

	s.Pager.SetMode(state.ModePaged)
	_, err = s.Pager.LoadFirstPage(ctx, 0)
	keep(err)
	s.RenderFindings(ctx)

	if scanID != "" {
		s.UpdateTail(ctx)
	}
	return firstErr
}

// Act runs a control action. Deleting the selected scan moves the view to
// the default scan, or clears it when none is left.
func (s *Session) Act(ctx context.Context, action domain.ScanAction, scanID string) error {
	if err := s.remote.Control(ctx, action, scanID); err != nil {
		return err
	}

	items, err := s.RefreshScans(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("scan list refresh after action failed")
	}

	selected := s.store.ScanID()
	if action == domain.ActionDelete && selected == scanID {
		if def := PickDefaultScanID(items); def != "" {
			return s.SelectScan(ctx, def)
		}
		s.Logs.StopTail()
		s.Seek.Cancel()
		s.store.Update(func(st *state.State) {
			st.Reset()
			st.ScanID = ""
			st.Verbose = false
		})
		s.emit(domain.SignalScans, domain.SignalServers, domain.SignalProbes, domain.SignalFindings, domain.SignalPager)
		return nil
	}

	if selected != scanID {
		return nil
	}
	if _, err := s.LoadScanState(ctx, scanID); err != nil {
		s.log.Warn().Err(err).Str("scan", scanID).Msg("scan state reload after action failed")
	}
	if _, err := s.Pager.LoadFirstPage(ctx, 0); err != nil {
		return err
	}
	s.RenderFindings(ctx)
	s.UpdateTail(ctx)
	return nil
}
