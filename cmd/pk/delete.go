package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <environment> <key>",
	Short: "Delete a property",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		comment, _ := cmd.Flags().GetString("comment")

		entry, err := svc.DeleteProperty(context.Background(), args[0], args[1], comment)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(entry)
			return nil
		}
		fmt.Printf("deleted: %s\n", entry.ChangeDetails)
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("comment", "", "audit comment (replaces generated change details)")
}
