package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/render"
	"github.com/Pusher91/truderwatch/internal/session"
	"github.com/Pusher91/truderwatch/internal/state"
)

var logsOpts struct {
	follow bool
	target string
	limit  int
}

var logsCmd = &cobra.Command{
	Use:   "logs [scan-id]",
	Short: "Show a scan's request log (errors only unless the scan is verbose)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		s := newSession(c, nil)
		defer s.Close()

		id, err := resolveScan(ctx, s, scanArg(args))
		if err != nil {
			return err
		}
		if err := s.SelectScan(ctx, id); err != nil {
			return err
		}
		s.Logs.StopTail()
		if logsOpts.target != "" {
			if err := s.SelectTarget(ctx, logsOpts.target); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		r := render.New(out)
		if !logsOpts.follow {
			var v session.RequestLogView
			s.Store().View(func(st *state.State) { v = session.BuildRequestLogView(st, logsOpts.limit) })
			fmt.Fprintln(out, r.RequestLog(v))
			return nil
		}

		// Follow mode prints oldest-first and then only records not seen on
		// the previous poll.
		seen := map[string]struct{}{}
		printNew := func() {
			var rows []domain.Probe
			s.Store().View(func(st *state.State) { rows = session.BuildRequestLogView(st, 0).Rows })
			next := make(map[string]struct{}, len(rows))
			for _, p := range slices.Backward(rows) {
				k := p.Key()
				next[k] = struct{}{}
				if _, ok := seen[k]; !ok {
					fmt.Fprintln(out, r.ProbeLine(p))
				}
			}
			seen = next
		}
		printNew()
		s.Logs.StartTail(ctx, printNew)
		<-ctx.Done()
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsOpts.follow, "follow", "f", false, "keep polling for new records")
	logsCmd.Flags().StringVar(&logsOpts.target, "target", "", "only records for this target's host")
	logsCmd.Flags().IntVarP(&logsOpts.limit, "limit", "n", 50, "rows to show (0 = all buffered)")
	logsCmd.Flags().Duration("tail-interval", 0, "poll interval for --follow")
	rootCmd.AddCommand(logsCmd)
}
