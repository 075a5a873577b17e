package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/service"
)

var setCmd = &cobra.Command{
	Use:   "set <environment> <key> <value>",
	Short: "Create or update a property",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		component, _ := cmd.Flags().GetString("component")
		comment, _ := cmd.Flags().GetString("comment")

		prop, entry, err := svc.SetProperty(context.Background(), service.SetPropertyInput{
			Environment: args[0],
			Key:         args[1],
			Value:       args[2],
			Description: description,
			Component:   component,
			Comment:     comment,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(map[string]any{"property": prop, "audit": entry})
			return nil
		}
		fmt.Printf("%s: %s\n", entry.Action, entry.ChangeDetails)
		return nil
	},
}

func init() {
	setCmd.Flags().String("description", "", "property description")
	setCmd.Flags().String("component", "", "owning component")
	setCmd.Flags().String("comment", "", "audit comment (replaces generated change details)")
}
