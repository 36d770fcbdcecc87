package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pusher91/truderwatch/internal/render"
)

var netinfoCmd = &cobra.Command{
	Use:   "netinfo",
	Short: "Show the server's local (and optionally public) IPv4 address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		ni, err := c.NetInfo(ctx, cfg.NetInfo.Public)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.New(out).NetInfo(ni))
		return nil
	},
}

func init() {
	netinfoCmd.Flags().Bool("public-ip", false, "also look up the public address")
	rootCmd.AddCommand(netinfoCmd)
}
