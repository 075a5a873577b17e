package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/groblegark/propkeep/internal/snapshot"
)

// readPassphrase takes the sealing passphrase from PROPKEEP_SEAL_PASSPHRASE,
// or prompts on the terminal when stdin is a TTY. confirm re-prompts to catch
// typos when sealing.
func readPassphrase(confirm bool) (string, error) {
	if p := os.Getenv("PROPKEEP_SEAL_PASSPHRASE"); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no passphrase: set PROPKEEP_SEAL_PASSPHRASE or run interactively")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		if !bytes.Equal(first, second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return string(first), nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export properties and the audit trail as a snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		seal, _ := cmd.Flags().GetBool("seal")

		var buf bytes.Buffer
		counts, err := svc.Export(context.Background(), &buf)
		if err != nil {
			return err
		}
		data := buf.Bytes()

		if seal {
			passphrase, err := readPassphrase(true)
			if err != nil {
				return err
			}
			data, err = snapshot.Seal(data, passphrase)
			if err != nil {
				return err
			}
		}

		if out == "" || out == "-" {
			if _, err := os.Stdout.Write(data); err != nil {
				return err
			}
		} else {
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "exported %d properties and %d audit rows to %s\n",
				counts.Properties, counts.AuditRows, out)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file (default: stdout)")
	exportCmd.Flags().Bool("seal", false, "encrypt the snapshot with a passphrase")
}
