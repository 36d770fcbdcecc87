package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Pusher91/truderwatch/internal/render"
	"github.com/Pusher91/truderwatch/internal/session"
)

var scansOutput string

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List scans on the server, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		s := newSession(c, nil)
		defer s.Close()

		items, err := s.RefreshScans(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch scansOutput {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		case "yaml":
			enc := yaml.NewEncoder(out)
			defer enc.Close()
			return enc.Encode(items)
		case "", "table":
			fmt.Fprintln(out, render.New(out).Scans(items, session.PickDefaultScanID(items)))
			return nil
		default:
			return fmt.Errorf("unknown output format %q (table, json, yaml)", scansOutput)
		}
	},
}

func init() {
	scansCmd.Flags().StringVarP(&scansOutput, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(scansCmd)
}
