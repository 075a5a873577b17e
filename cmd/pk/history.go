package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := cmd.Flags().GetString("env")
		key, _ := cmd.Flags().GetString("key")
		record, _ := cmd.Flags().GetString("record")
		action, _ := cmd.Flags().GetString("action")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		entries, err := svc.History(context.Background(), model.AuditFilter{
			Environment: env,
			PropertyKey: key,
			RecordID:    record,
			Action:      model.Action(action),
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(entries)
			return nil
		}
		printAuditList(entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("env", "", "filter by environment")
	historyCmd.Flags().String("key", "", "filter by property key")
	historyCmd.Flags().String("record", "", "filter by record id")
	historyCmd.Flags().String("action", "", "filter by action (CREATE, UPDATE, DELETE, RESTORE, BATCH)")
	historyCmd.Flags().Int("limit", 0, "maximum results (0: no limit)")
	historyCmd.Flags().Int("offset", 0, "results to skip")
}
