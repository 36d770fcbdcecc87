package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pusher91/truderwatch/internal/domain"
)

// controlCommand builds pause/resume/stop/delete, which only differ in the
// action they send.
func controlCommand(action domain.ScanAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <scan-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			c, err := newClient()
			if err != nil {
				return err
			}
			s := newSession(c, nil)
			defer s.Close()

			if err := s.Act(ctx, action, args[0]); err != nil {
				return fmt.Errorf("%s %s: %w", action, args[0], err)
			}
			logger.Info().Str("scan", args[0]).Str("action", string(action)).Msg("done")
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], action)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		controlCommand(domain.ActionPause, "Pause a running scan"),
		controlCommand(domain.ActionResume, "Resume a paused scan"),
		controlCommand(domain.ActionStop, "Stop a scan, or finalise an orphaned one"),
		controlCommand(domain.ActionDelete, "Delete an inactive scan and its files"),
	)
}
