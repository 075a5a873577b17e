package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/groblegark/propkeep/internal/matrix"
	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/ui"
)

const timeFormat = "2006-01-02 15:04:05"

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printProperty(p *model.Property) {
	fmt.Printf("ID:            %s\n", p.ID)
	fmt.Printf("Environment:   %s\n", p.Environment)
	fmt.Printf("Key:           %s\n", p.Key)
	fmt.Printf("Value:         %s\n", p.Value)
	if p.Description != "" {
		fmt.Printf("Description:   %s\n", p.Description)
	}
	if p.Component != "" {
		fmt.Printf("Component:     %s\n", p.Component)
	}
	if !p.LastModified.IsZero() {
		fmt.Printf("Last Modified: %s\n", p.LastModified.Format(timeFormat))
	}
}

func printPropertyList(props []*model.Property, total int) {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, []string{p.Environment, p.Key, p.Value, p.Component})
	}
	ui.RenderTable(os.Stdout, []string{"ENVIRONMENT", "KEY", "VALUE", "COMPONENT"}, rows, ui.TermWidth())
	fmt.Printf("\n%d properties (%d total)\n", len(props), total)
}

func printMatrix(m *matrix.Matrix) {
	header := append([]string{"KEY"}, m.Environments...)
	rows := make([][]string, 0, len(m.Rows))
	for _, r := range m.Rows {
		row := []string{r.Key}
		for _, env := range m.Environments {
			row = append(row, r.Values[env])
		}
		rows = append(rows, row)
	}
	ui.RenderTable(os.Stdout, header, rows, ui.TermWidth())
}

func printAuditEntry(e *model.AuditEntry) {
	action := e.Action.String()
	fmt.Printf("%s  %s  %s", ui.RenderMuted(e.Timestamp.Format(timeFormat)), ui.RenderAccent(e.ID), action)
	if e.PropertyKey != "" {
		fmt.Printf("  %s", e.PropertyKey)
	}
	if e.Environment != "" {
		fmt.Printf(" (%s)", e.Environment)
	}
	fmt.Println()
	if e.ChangeDetails != "" {
		fmt.Printf("    %s\n", e.ChangeDetails)
	}
	if e.UserID != "" {
		fmt.Printf("    %s\n", ui.RenderMuted("by "+e.UserID))
	}
}

func printAuditList(entries []*model.AuditEntry) {
	for _, e := range entries {
		printAuditEntry(e)
	}
	fmt.Printf("\n%d entries\n", len(entries))
}
