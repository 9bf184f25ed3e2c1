package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/internal/aggregator"
)

func newReportCmd(opts *rootOptions, period aggregator.Period) *cobra.Command {
	use := string(period)
	if period == aggregator.PeriodDay {
		use = "today"
	}

	return &cobra.Command{
		Use:   use + " [budget]",
		Short: output.PeriodTitle(period) + "'s cost report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseBudget(args)
			if err != nil {
				return err
			}

			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			records, err := e.readWindow(aggregator.Window(period, e.now))
			if err != nil {
				return err
			}

			stats := aggregator.Aggregate(records, e.now.Location())
			status := e.cfg.Thresholds().Classify(stats.TotalCost, limit)
			output.PrintSummary(e.out, output.PeriodTitle(period), stats, status)
			return nil
		},
	}
}
