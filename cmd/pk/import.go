package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/snapshot"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the store's contents from a snapshot",
	Long: `Import reads a snapshot and atomically replaces the stored properties
(and, for combined snapshots, the audit trail). Legacy property-only
snapshots are detected and leave the audit trail untouched. Pass "-" to read
from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sealed, _ := cmd.Flags().GetBool("sealed")

		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		if sealed {
			passphrase, err := readPassphrase(false)
			if err != nil {
				return err
			}
			data, err = snapshot.Open(data, passphrase)
			if err != nil {
				return err
			}
		}

		counts, err := svc.Import(context.Background(), bytes.NewReader(data))
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(counts)
			return nil
		}
		format := "combined"
		if counts.Legacy {
			format = "legacy"
		}
		fmt.Printf("imported %d properties and %d audit rows (%s snapshot)\n",
			counts.Properties, counts.AuditRows, format)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("sealed", false, "snapshot is passphrase-sealed")
}
