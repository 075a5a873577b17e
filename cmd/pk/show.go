package main

import (
	"context"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <environment> <key>",
	Short: "Show one property",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := svc.Property(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(p)
			return nil
		}
		printProperty(p)
		return nil
	},
}
