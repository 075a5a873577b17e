package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Load .properties files from a folder into the store",
	Long: `Load scans a folder of .properties files, one component per file, and
replaces the stored properties with the scanned set. With --env the folder is
one environment; without it each subdirectory is treated as an environment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := cmd.Flags().GetString("env")

		entry, err := svc.LoadFolder(context.Background(), args[0], env)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("no changes")
			return nil
		}
		if jsonOutput {
			printJSON(entry)
			return nil
		}
		fmt.Printf("loaded: %s\n", entry.ChangeDetails)
		return nil
	},
}

func init() {
	loadCmd.Flags().String("env", "", "environment the folder belongs to (empty: one subdirectory per environment)")
}
