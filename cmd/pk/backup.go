package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/config"
	"github.com/groblegark/propkeep/internal/snapshot"
	"github.com/groblegark/propkeep/internal/store/postgres"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up snapshots to configured destinations",
	Long: `Backup exports the combined snapshot to every destination configured
through PROPKEEP_BACKUP_* environment variables (S3 bucket and/or git clone),
sealing it when PROPKEEP_BACKUP_PASSPHRASE is set. By default it runs on the
configured interval until interrupted; --once exports one snapshot and exits.`,
	Args: cobra.NoArgs,
	// Backup reads its whole configuration from the environment.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var dests []snapshot.Destination
		if cfg.BackupS3Bucket != "" {
			s3dest, err := snapshot.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
			if err != nil {
				return err
			}
			dests = append(dests, s3dest)
		}
		if cfg.BackupGitRepo != "" {
			dests = append(dests, snapshot.NewGitDestination(cfg.BackupGitRepo, cfg.BackupGitFile, cfg.BackupGitBranch))
		}
		if len(dests) == 0 {
			return fmt.Errorf("no backup destinations: set PROPKEEP_BACKUP_S3_BUCKET or PROPKEEP_BACKUP_GIT_REPO")
		}

		if once || cfg.BackupInterval == 0 {
			var buf bytes.Buffer
			counts, err := snapshot.Export(ctx, st, &buf)
			if err != nil {
				return err
			}
			data := buf.Bytes()
			if cfg.BackupPassphrase != "" {
				data, err = snapshot.Seal(data, cfg.BackupPassphrase)
				if err != nil {
					return err
				}
			}
			for _, dest := range dests {
				if err := dest.Write(ctx, data); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "backed up %d properties and %d audit rows to %d destination(s)\n",
				counts.Properties, counts.AuditRows, len(dests))
			return nil
		}

		sched := snapshot.NewScheduler(st, dests, cfg.BackupInterval, cfg.BackupPassphrase, logger)
		sched.Start()
		logger.Info("backup scheduler started", "interval", cfg.BackupInterval, "destinations", len(dests))
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	backupCmd.Flags().Bool("once", false, "export a single backup and exit")
	rootCmd.AddCommand(backupCmd)
}
