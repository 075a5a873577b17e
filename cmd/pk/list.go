package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List properties",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := cmd.Flags().GetString("env")
		component, _ := cmd.Flags().GetString("component")
		search, _ := cmd.Flags().GetString("search")
		sort, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		props, total, err := svc.Properties(context.Background(), model.PropertyFilter{
			Environment: env,
			Component:   component,
			Search:      search,
			Sort:        sort,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(props)
			return nil
		}
		printPropertyList(props, total)
		return nil
	},
}

func init() {
	listCmd.Flags().String("env", "", "filter by environment")
	listCmd.Flags().String("component", "", "filter by component")
	listCmd.Flags().String("search", "", "substring match on key or value")
	listCmd.Flags().String("sort", "", "sort column (environment, key, value, component, last_modified)")
	listCmd.Flags().Int("limit", 0, "maximum results (0: no limit)")
	listCmd.Flags().Int("offset", 0, "results to skip")
}
