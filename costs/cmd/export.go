package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/model"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		window windowFlags
	)

	cmd := &cobra.Command{
		Use:   "export <path> [period]",
		Short: "Export a report as JSON or markdown (period defaults to month)",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("missing export path")
			}
			path := args[0]

			periodName := "month"
			if len(args) > 1 {
				periodName = args[1]
			}
			period, err := aggregator.ParsePeriod(periodName)
			if err != nil {
				return err
			}
			if format != "json" && format != "markdown" {
				return fmt.Errorf("unknown format %q (want json or markdown)", format)
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
			stats := aggregator.Aggregate(records, e.now.Location())

			if format == "markdown" {
				err = output.WriteMarkdown(path, output.MarkdownReport{
					Period:      periodName,
					GeneratedAt: e.now,
					Stats:       stats,
				})
			} else {
				err = output.WriteJSON(path, model.Report{
					Period:      periodName,
					GeneratedAt: e.now.UTC(),
					Stats:       stats,
					Logs:        records,
				})
			}
			if err != nil {
				return err
			}

			e.out.Success("✅ Report exported to: " + path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json|markdown")
	window.register(cmd)
	return cmd
}
