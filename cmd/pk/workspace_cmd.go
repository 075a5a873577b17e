package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage named database workspaces",
	// Skip the store dial; all workspace subcommands are local file operations.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add <name> <database-url>",
	Short: "Add or update a named workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		natsURL, _ := cmd.Flags().GetString("nats")

		cfg, err := loadWorkspacesConfig()
		if err != nil {
			return err
		}
		cfg.Workspaces[name] = Workspace{DatabaseURL: url, NATSURL: natsURL}
		if err := saveWorkspacesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("workspace %q added (%s)\n", name, url)
		return nil
	},
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := loadWorkspacesConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Workspaces[name]; !ok {
			return fmt.Errorf("workspace %q not found", name)
		}
		delete(cfg.Workspaces, name)
		if cfg.Active == name {
			cfg.Active = ""
		}
		if err := saveWorkspacesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("workspace %q removed\n", name)
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkspacesConfig()
		if err != nil {
			return err
		}
		if len(cfg.Workspaces) == 0 {
			fmt.Println("no workspaces configured")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tDATABASE\tNATS")
		for name, ws := range cfg.Workspaces {
			marker := "  "
			if name == cfg.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\n", marker, name, ws.DatabaseURL, ws.NATSURL)
		}
		return w.Flush()
	},
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := loadWorkspacesConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Workspaces[name]; !ok {
			return fmt.Errorf("workspace %q not found", name)
		}
		cfg.Active = name
		if err := saveWorkspacesConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("workspace %q is now active\n", name)
		return nil
	},
}

func init() {
	workspaceAddCmd.Flags().String("nats", "", "NATS URL for change events")
	workspaceCmd.AddCommand(workspaceAddCmd)
	workspaceCmd.AddCommand(workspaceRemoveCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceUseCmd)
}
