package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/internal/aggregator"
)

func newDailyCmd(opts *rootOptions) *cobra.Command {
	var (
		window  windowFlags
		compact bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "daily [period]",
		Short: "Show usage per day as a table (period defaults to month)",
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
			bounds, err := window.resolve(period, e.now)
			if err != nil {
				return err
			}

			records, err := e.readWindow(bounds)
			if err != nil {
				return err
			}
			rows := aggregator.Daily(records, e.now.Location())

			if jsonOut {
				return output.PrintJSON(cmd.OutOrStdout(), rows)
			}
			output.PrintTable(cmd.OutOrStdout(), rows, "Date", output.TableOptions{ForceCompact: compact})
			return nil
		},
	}

	window.register(cmd)
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "force compact table output")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}
