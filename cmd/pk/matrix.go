package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/propkeep/internal/matrix"
	"github.com/groblegark/propkeep/internal/model"
)

// buildMatrix projects the current store contents, optionally filtered by
// component.
func buildMatrix(ctx context.Context, component string) (*matrix.Matrix, error) {
	props, _, err := svc.Properties(ctx, model.PropertyFilter{Component: component})
	if err != nil {
		return nil, err
	}
	flat := make([]model.Property, 0, len(props))
	for _, p := range props {
		flat = append(flat, *p)
	}
	return matrix.Build(flat), nil
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show the key-by-environment property matrix",
	Long: `Matrix renders every property key as a row and every environment as a
column. With --out the matrix is written as JSON for editing; apply the
edited file with "pk save".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		component, _ := cmd.Flags().GetString("component")
		out, _ := cmd.Flags().GetString("out")

		m, err := buildMatrix(context.Background(), component)
		if err != nil {
			return err
		}

		if out != "" {
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("matrix written to %s (%d rows, %d environments)\n", out, len(m.Rows), len(m.Environments))
			return nil
		}

		if jsonOutput {
			printJSON(m)
			return nil
		}
		printMatrix(m)
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <matrix-file>",
	Short: "Apply an edited matrix file as one batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		component, _ := cmd.Flags().GetString("component")
		comment, _ := cmd.Flags().GetString("comment")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var edited matrix.Matrix
		if err := json.Unmarshal(data, &edited); err != nil {
			return fmt.Errorf("parse matrix file: %w", err)
		}

		original, err := buildMatrix(context.Background(), component)
		if err != nil {
			return err
		}

		entry, err := svc.SaveMatrix(context.Background(), original, &edited, comment)
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
		fmt.Printf("%s: %s\n", entry.Action, entry.ChangeDetails)
		return nil
	},
}

func init() {
	matrixCmd.Flags().String("component", "", "restrict the matrix to one component")
	matrixCmd.Flags().String("out", "", "write the matrix as JSON to a file for editing")
	saveCmd.Flags().String("component", "", "component the matrix file was built from")
	saveCmd.Flags().String("comment", "", "audit comment for the batch")
}
