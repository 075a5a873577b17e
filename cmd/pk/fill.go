package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var fillCmd = &cobra.Command{
	Use:   "fill <environment>...",
	Short: "Create empty placeholders for keys missing from environments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comment, _ := cmd.Flags().GetString("comment")

		entry, created, err := svc.FillMissing(context.Background(), args, comment)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("nothing missing")
			return nil
		}
		if jsonOutput {
			printJSON(entry)
			return nil
		}
		fmt.Printf("created %d placeholder(s)\n", created)
		return nil
	},
}

func init() {
	fillCmd.Flags().String("comment", "", "audit comment for the batch")
}
