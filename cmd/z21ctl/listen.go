package main

import (
	"github.com/spf13/cobra"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

func newListenCmd(cfg *rootConfig) *cobra.Command {
	var noSubscribe bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to broadcasts and print events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmds := []z21.Command{z21.GetStatus{}}
			if !noSubscribe {
				cmds = append([]z21.Command{z21.SetBroadcastFlags{}}, cmds...)
			}
			return session(cmd.Context(), cfg, newPrinter(cmd.OutOrStdout(), cfg.format), cmds, 0, true)
		},
	}
	cmd.Flags().BoolVar(&noSubscribe, "no-subscribe", false, "do not send LAN_SET_BROADCASTFLAGS first")
	return cmd
}
