package output

import (
	"fmt"

	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/budget"
	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/internal/model"
)

const summaryTop = 5

// PrintSummary prints the period report. Budget banding is shown only when
// status carries a budget.
func PrintSummary(out *console.Printer, title string, stats model.Stats, status budget.Status) {
	out.Section(fmt.Sprintf("\n📊 %s cost report\n", title))

	out.Section("Overview")
	out.Plainf("  Calls: %d", stats.TotalCalls)
	out.Plainf("  Input tokens: %s", FormatNumber(stats.TotalInputTokens))
	out.Plainf("  Output tokens: %s", FormatNumber(stats.TotalOutputTokens))
	out.Success("  Total cost: " + FormatCost(stats.TotalCost))

	if status.Level != budget.LevelNone {
		out.Line(levelColor(status.Level), fmt.Sprintf("  Budget used: %s %.1f%% (%s / %s)",
			levelIcon(status.Level), status.Percent, FormatBudget(status.Spent), FormatBudget(status.Budget)))
	}

	if len(stats.ByModel) > 0 {
		out.Section("\nBy model")
		for _, e := range aggregator.ModelsByCost(stats.ByModel) {
			out.Plainf("  %s:", e.Key)
			out.Plainf("    Calls: %d", e.Calls)
			out.Plainf("    Cost: %s", FormatCost(e.Cost))
			out.Line(console.Gray, fmt.Sprintf("    Average: %s/call", FormatCost(e.Cost/float64(e.Calls))))
		}
	}

	if len(stats.ByOperation) > 0 {
		out.Section("\nBy operation")
		for _, e := range aggregator.Top(aggregator.ByCost(stats.ByOperation), summaryTop) {
			out.Plainf("  %s: %d calls, %s", e.Key, e.Calls, FormatCost(e.Cost))
		}
	}

	if len(stats.ByModule) > 0 {
		out.Section(fmt.Sprintf("\nBy module (Top %d)", summaryTop))
		for _, e := range aggregator.Top(aggregator.ByCost(stats.ByModule), summaryTop) {
			out.Plainf("  %s: %d calls, %s", e.Key, e.Calls, FormatCost(e.Cost))
		}
	}

	out.Blank()
}

func levelColor(l budget.Level) console.Color {
	switch l {
	case budget.LevelCritical:
		return console.Red
	case budget.LevelCaution:
		return console.Yellow
	}
	return console.Green
}

func levelIcon(l budget.Level) string {
	switch l {
	case budget.LevelCritical:
		return "🚨"
	case budget.LevelCaution:
		return "⚠️"
	}
	return "✅"
}
