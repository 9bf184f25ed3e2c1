package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vattention/facio-superpowers/internal/model"
)

func TestCalculateCost_UnknownModelUsesSonnet(t *testing.T) {
	table := DefaultTable()
	for _, name := range []string{"gpt-4", "", "Sonnet", "claude-opus-4"} {
		got := table.CalculateCost(name, 12_345, 6_789)
		want := table.CalculateCost("sonnet", 12_345, 6_789)
		assert.Equal(t, want, got, "model %q", name)
	}
}

func TestCalculateCost_OneMillionTokensEqualsUnitPrice(t *testing.T) {
	table := DefaultTable()
	for _, name := range table.Models() {
		p := table[name]
		assert.Equal(t, p.InputPerMillion, table.CalculateCost(name, 1_000_000, 0), name)
		assert.Equal(t, p.OutputPerMillion, table.CalculateCost(name, 0, 1_000_000), name)
	}
}

func TestCalculateCost_Mixed(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		model string
		in    int64
		out   int64
		want  float64
	}{
		{"haiku", 1000, 500, 0.000875},
		{"sonnet", 1000, 500, 0.0105},
		{"opus", 15234, 3421, 0.485085},
		{"sonnet", 0, 0, 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, table.CalculateCost(tc.model, tc.in, tc.out), 1e-12, "%s %d/%d", tc.model, tc.in, tc.out)
	}
}

func TestGetPricing_CustomTableWithoutSonnet(t *testing.T) {
	table := Table{"local": {InputPerMillion: 0, OutputPerMillion: 0}}

	require.True(t, table.Known("local"))
	assert.Equal(t, model.ModelPricing{}, table.GetPricing("local"))
	assert.Equal(t, DefaultTable()["sonnet"], table.GetPricing("unknown"))
}

func TestModelsSorted(t *testing.T) {
	assert.Equal(t, []string{"haiku", "opus", "sonnet"}, DefaultTable().Models())
}
