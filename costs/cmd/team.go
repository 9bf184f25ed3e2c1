package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/costs/internal/sync"
	"github.com/vattention/facio-superpowers/internal/aggregator"
)

func newTeamCmd(opts *rootOptions) *cobra.Command {
	var limit float64

	cmd := &cobra.Command{
		Use:   "team [period]",
		Short: "Show team-wide usage from the server (period defaults to month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := aggregator.ParsePeriod(argOr(args, 0, "month"))
			if err != nil {
				return err
			}

			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			if !e.cfg.Configured() {
				return errNotConfigured
			}

			team, err := sync.NewClient(e.cfg).TeamStats(cmd.Context(), string(period))
			if err != nil {
				return err
			}

			title := "Team " + strings.ToLower(output.PeriodTitle(period))
			output.PrintSummary(e.out, title, team.Stats, e.cfg.Thresholds().Classify(team.Stats.TotalCost, limit))
			e.out.Plainf("Clients reporting: %d", team.Clients)
			e.out.Blank()
			return nil
		},
	}

	cmd.Flags().Float64Var(&limit, "budget", 0, "team budget for the period (0 disables banding)")
	return cmd
}
