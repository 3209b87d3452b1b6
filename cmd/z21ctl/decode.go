package main

import (
	"github.com/spf13/cobra"
)

func newDecodeCmd(cfg *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode captured datagrams offline",
		Long:  "Each argument is one UDP payload in hex; every record it carries is decoded and printed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(newPrinter(cmd.OutOrStdout(), cfg.format), args)
		},
	}
}

func runDecode(p *printer, args []string) error {
	for _, arg := range args {
		payload, err := parseHex(arg)
		if err != nil {
			return err
		}
		if err := p.datagram(payload, "", nil); err != nil {
			return err
		}
	}
	return nil
}

