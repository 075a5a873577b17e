package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// defaultWidth is used when stdout is not a terminal (pipes, CI).
const defaultWidth = 120

// minCellWidth keeps truncated cells readable.
const minCellWidth = 8

// TermWidth returns the stdout terminal width, or defaultWidth when stdout
// is not a terminal.
func TermWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// RenderTable writes a tab-aligned table. Cells are truncated so a row of
// maximal cells fits within width; pass 0 to skip truncation.
func RenderTable(w io.Writer, header []string, rows [][]string, width int) {
	maxCell := 0
	if width > 0 && len(header) > 0 {
		// Two spaces of tabwriter padding per column.
		maxCell = width/len(header) - 2
		if maxCell < minCellWidth {
			maxCell = minCellWidth
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = Truncate(c, maxCell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// Truncate shortens s to max runes with a trailing ellipsis. max <= 0 means
// no limit.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
