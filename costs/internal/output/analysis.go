package output

import (
	"fmt"

	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/budget"
	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/internal/model"
)

const analysisTopModules = 10

// AnalysisOptions controls the analyzer summary
type AnalysisOptions struct {
	Period     aggregator.Period
	Thresholds budget.Thresholds
	// Monthly budget, only shown for the month period
	MonthlyBudget float64
}

// PrintAnalysis prints the analyzer summary with padded columns
func PrintAnalysis(out *console.Printer, stats model.Stats, opts AnalysisOptions) {
	out.Section(fmt.Sprintf("\n📊 %s cost summary\n", PeriodTitle(opts.Period)))

	out.Success("Overview:")
	out.Plainf("  Calls: %d", stats.TotalCalls)
	out.Plainf("  Total cost: %s", FormatCost(stats.TotalCost))
	out.Plainf("  Input tokens: %s", FormatNumber(stats.TotalInputTokens))
	out.Plainf("  Output tokens: %s", FormatNumber(stats.TotalOutputTokens))
	out.Plainf("  Total tokens: %s", FormatNumber(stats.TotalTokens()))

	out.Success("\nBy model:")
	for _, e := range aggregator.ModelsByCost(stats.ByModel) {
		out.Plainf("  %-10s %9s  (%d calls, %s tokens)", e.Key, FormatCost(e.Cost), e.Calls, FormatNumber(e.Tokens()))
	}

	out.Success("\nBy operation:")
	for _, e := range aggregator.ByCost(stats.ByOperation) {
		out.Plainf("  %-35s %9s  (%d calls)", e.Key, FormatCost(e.Cost), e.Calls)
	}

	if len(stats.ByModule) > 0 {
		out.Success("\nBy module:")
		for _, e := range aggregator.Top(aggregator.ByCost(stats.ByModule), analysisTopModules) {
			out.Plainf("  %-20s %9s  (%d calls)", e.Key, FormatCost(e.Cost), e.Calls)
		}
	}

	if opts.Period == aggregator.PeriodMonth {
		status := opts.Thresholds.Classify(stats.TotalCost, opts.MonthlyBudget)
		if status.Level != budget.LevelNone {
			out.Success("\nBudget:")
			out.Line(levelColor(status.Level), fmt.Sprintf("  %.1f%% (%s / %s)",
				status.Percent, FormatBudget(status.Spent), FormatBudget(status.Budget)))

			switch status.Level {
			case budget.LevelCritical:
				out.Error("  ⚠️  Warning: approaching the budget limit!")
			case budget.LevelCaution:
				out.Warn(fmt.Sprintf("  ⚠️  Note: more than %.0f%% of the budget used", opts.Thresholds.Caution*100))
			}
		}
	}

	out.Blank()
}
