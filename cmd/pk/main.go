package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/audit"
	"github.com/groblegark/propkeep/internal/events"
	"github.com/groblegark/propkeep/internal/service"
	"github.com/groblegark/propkeep/internal/store"
	"github.com/groblegark/propkeep/internal/store/postgres"
	"github.com/groblegark/propkeep/internal/ui"
)

var (
	databaseURL string
	jsonOutput  bool
	userName    string

	st     store.Store
	svc    *service.PropertyService
	logger *slog.Logger
)

func defaultUser() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

// resolveDatabaseURL picks the database in priority order: the --db flag,
// PROPKEEP_DATABASE_URL, then the active workspace profile.
func resolveDatabaseURL() string {
	if databaseURL != "" {
		return databaseURL
	}
	if url := os.Getenv("PROPKEEP_DATABASE_URL"); url != "" {
		return url
	}
	return activeWorkspaceURL()
}

func resolveNATSURL() string {
	if url := os.Getenv("PROPKEEP_NATS_URL"); url != "" {
		return url
	}
	return activeWorkspaceNATSURL()
}

var rootCmd = &cobra.Command{
	Use:   "pk",
	Short: "Track and revert flat key/value configuration properties",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		url := resolveDatabaseURL()
		if url == "" {
			return fmt.Errorf("no database configured: set --db, PROPKEEP_DATABASE_URL, or an active workspace")
		}

		var err error
		st, err = postgres.New(url)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		var pub events.Publisher
		if natsURL := resolveNATSURL(); natsURL != "" {
			pub, err = events.NewNATSPublisher(natsURL)
			if err != nil {
				logger.Warn("events disabled", "err", err)
				pub = nil
			}
		}

		session, err := audit.NewSession(userName)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		svc = service.New(st, pub, session, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
		}
	},
}

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "db", "", "Postgres connection URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&userName, "user", defaultUser(), "user name recorded in the audit trail")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
