package pricing

import (
	"sort"

	"github.com/vattention/facio-superpowers/internal/model"
)

// DefaultModel is the tier used for unrecognized model names
const DefaultModel = "sonnet"

const tokensPerMillion = 1_000_000

// Table maps a model name to its per-million-token prices
type Table map[string]model.ModelPricing

// DefaultTable returns the built-in price table
func DefaultTable() Table {
	return Table{
		"haiku":  {InputPerMillion: 0.25, OutputPerMillion: 1.25},
		"sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"opus":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
	}
}

// Known reports whether the model has an entry in the table
func (t Table) Known(modelName string) bool {
	_, ok := t[modelName]
	return ok
}

// GetPricing returns pricing for a model, falling back to the sonnet tier.
// A table without a sonnet entry falls back to the built-in sonnet prices.
func (t Table) GetPricing(modelName string) model.ModelPricing {
	if p, ok := t[modelName]; ok {
		return p
	}
	if p, ok := t[DefaultModel]; ok {
		return p
	}
	return DefaultTable()[DefaultModel]
}

// Models returns the table's model names in sorted order
func (t Table) Models() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateCost returns the USD cost of a call. No rounding is applied.
func (t Table) CalculateCost(modelName string, inputTokens, outputTokens int64) float64 {
	return Cost(t.GetPricing(modelName), inputTokens, outputTokens)
}

// Cost applies a pricing entry to token counts
func Cost(p model.ModelPricing, inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / tokensPerMillion * p.InputPerMillion
	outputCost := float64(outputTokens) / tokensPerMillion * p.OutputPerMillion
	return inputCost + outputCost
}
