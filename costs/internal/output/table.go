package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/vattention/facio-superpowers/internal/aggregator"
)

const (
	compactThreshold = 100 // terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// terminalWidth returns COLUMNS, the stdout terminal width, or a default
func terminalWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if width, err := strconv.Atoi(cols); err == nil && width > 0 {
			return width
		}
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}

func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return terminalWidth() < compactThreshold
}

// PrintTable prints one row per entry with a total line. Compact mode drops
// the calls and total-token columns.
func PrintTable(w io.Writer, rows []aggregator.Entry, title string, opts TableOptions) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No usage data found.")
		return
	}

	keyWidth := len(title)
	for _, r := range rows {
		keyWidth = max(keyWidth, len(r.Key))
	}
	keyWidth = max(keyWidth, 10)

	var total aggregator.Entry
	for _, r := range rows {
		total.Calls += r.Calls
		total.InputTokens += r.InputTokens
		total.OutputTokens += r.OutputTokens
		total.Cost += r.Cost
	}
	total.Key = "Total"

	fmt.Fprintln(w)
	if shouldUseCompact(opts) {
		line := strings.Repeat("─", keyWidth+2+12+2+12+2+10)
		row := func(key, in, out, cost string) {
			fmt.Fprintf(w, "%-*s  %12s  %12s  %10s\n", keyWidth, key, in, out, cost)
		}

		row(title, "Input", "Output", "Cost")
		fmt.Fprintln(w, line)
		for _, r := range rows {
			row(r.Key, FormatNumber(r.InputTokens), FormatNumber(r.OutputTokens), FormatCost(r.Cost))
		}
		if len(rows) > 1 {
			fmt.Fprintln(w, line)
			row(total.Key, FormatNumber(total.InputTokens), FormatNumber(total.OutputTokens), FormatCost(total.Cost))
		}
		fmt.Fprintln(w)
		return
	}

	line := strings.Repeat("─", keyWidth+2+8+2+14+2+14+2+14+2+10)
	row := func(key, calls, in, out, tokens, cost string) {
		fmt.Fprintf(w, "%-*s  %8s  %14s  %14s  %14s  %10s\n", keyWidth, key, calls, in, out, tokens, cost)
	}

	row(title, "Calls", "Input", "Output", "Total Tokens", "Cost")
	fmt.Fprintln(w, line)
	for _, r := range rows {
		row(r.Key, strconv.Itoa(r.Calls), FormatNumber(r.InputTokens), FormatNumber(r.OutputTokens),
			FormatNumber(r.Tokens()), FormatCost(r.Cost))
	}
	if len(rows) > 1 {
		fmt.Fprintln(w, line)
		row(total.Key, strconv.Itoa(total.Calls), FormatNumber(total.InputTokens), FormatNumber(total.OutputTokens),
			FormatNumber(total.Tokens()), FormatCost(total.Cost))
	}
	fmt.Fprintln(w)
}
