package output

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vattention/facio-superpowers/internal/aggregator"
)

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatCost formats a line-item cost with 4 decimals
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

// FormatBudget formats a budget total with 2 decimals
func FormatBudget(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// PeriodTitle names a period for headings
func PeriodTitle(p aggregator.Period) string {
	switch p {
	case aggregator.PeriodDay:
		return "Today"
	case aggregator.PeriodWeek:
		return "This week"
	case aggregator.PeriodMonth:
		return "This month"
	}
	return "All time"
}
