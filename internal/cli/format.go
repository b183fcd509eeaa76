package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// fatih/color disables these when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	scopeColor   = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	initColor    = color.New(color.FgGreen)
	deinitColor  = color.New(color.FgRed)
)

// stateColors colors the STATE column of the status table.
var stateColors = map[string]*color.Color{
	"ok":            color.New(color.FgGreen),
	"uninitialized": color.New(color.FgHiBlack),
	"modified":      color.New(color.FgYellow),
	"conflict":      color.New(color.FgRed, color.Bold),
	"unknown":       color.New(color.FgYellow),
}

// PrintSection prints the header of one scope ("." for the root repository).
func PrintSection(scope string) {
	fmt.Println()
	_, _ = scopeColor.Printf("▸ %s\n", scope)
}

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

// PrintWarning prints a warning message with a warning symbol
func PrintWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// PrintError prints one failure to stderr.
func PrintError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// PrintInfo prints an informational message
func PrintInfo(msg string) {
	fmt.Println(msg)
}

// PrintLabelValue prints an indented "label: value" line.
func PrintLabelValue(label, value string) {
	_, _ = labelColor.Printf("  %s: ", label)
	_, _ = valueColor.Println(value)
}

// PrintChanges lists pending init operations as "+ path" and deinit
// operations as "- path".
func PrintChanges(toInit, toDeinit []string) {
	for _, p := range toInit {
		_, _ = initColor.Printf("    + %s\n", p)
	}
	for _, p := range toDeinit {
		_, _ = deinitColor.Printf("    - %s\n", p)
	}
}

// PrintTable prints a column table. The column named STATE is colored by
// submodule state; other cells are dimmed.
func PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	stateCol := -1
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
		if header == "STATE" {
			stateCol = i
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string, colorOf func(col int, cell string) *color.Color) {
		fmt.Print("  ")
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				fmt.Print("  ")
			}
			_, _ = colorOf(i, cell).Printf("%-*s", widths[i], cell)
		}
		fmt.Println()
	}

	printRow(headers, func(int, string) *color.Color { return labelColor })

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	printRow(rule, func(int, string) *color.Color { return valueColor })

	for _, row := range rows {
		printRow(row, func(col int, cell string) *color.Color {
			if c, ok := stateColors[cell]; ok && col == stateCol {
				return c
			}
			return valueColor
		})
	}
}

// PrintEmptyState prints a dimmed note in place of data.
func PrintEmptyState(msg string) {
	_, _ = valueColor.Printf("  %s\n", msg)
}

// PrintCount formats a count with the singular or plural noun.
func PrintCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
