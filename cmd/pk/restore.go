package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <audit-entry-id>",
	Short: "Undo one audit entry",
	Long: `Restore inverts a single audit entry: an undone creation removes the
property, an undone update or deletion writes back the prior state, and an
undone batch reverts every operation it carried. The inversion is itself
recorded in the audit trail; there is no redo.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, res, err := svc.Restore(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]any{"audit": entry, "upserts": len(res.Upserts), "deletes": len(res.Deletes)})
			return nil
		}
		fmt.Printf("restored: %s\n", entry.ChangeDetails)
		return nil
	},
}
