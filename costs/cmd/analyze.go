package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/console"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		week, month bool
		report      bool
		reportPath  string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize usage and optionally write a markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			period := aggregator.PeriodDay
			switch {
			case week:
				period = aggregator.PeriodWeek
			case month:
				period = aggregator.PeriodMonth
			}

			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			e.out.Section("\n🔍 Reading cost log...")
			all, err := e.readWindow(aggregator.Options{})
			if err != nil {
				return err
			}
			if len(all) == 0 {
				e.out.Line(console.Gray, "  No cost records found")
				e.out.Line(console.Gray, "  Records are written automatically when skills run\n")
				return nil
			}
			e.out.Line(console.Gray, fmt.Sprintf("  Found %d records\n", len(all)))

			records := aggregator.FilterRecords(all, aggregator.Window(period, e.now))
			stats := aggregator.Aggregate(records, e.now.Location())

			output.PrintAnalysis(e.out, stats, output.AnalysisOptions{
				Period:        period,
				Thresholds:    e.cfg.Thresholds(),
				MonthlyBudget: e.cfg.Budget.Monthly,
			})

			if !report {
				return nil
			}

			path := reportPath
			if path == "" {
				path = filepath.Join(e.cfg.ReportsPath(), output.ReportFileName(string(period), e.now))
			}
			if err := output.WriteMarkdown(path, output.MarkdownReport{
				Period:      string(period),
				GeneratedAt: e.now,
				Stats:       stats,
			}); err != nil {
				return err
			}
			e.out.Success(fmt.Sprintf("\n📄 Report written: %s\n", path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&week, "week", false, "analyze this week")
	cmd.Flags().BoolVar(&month, "month", false, "analyze this month")
	cmd.Flags().BoolVar(&report, "report", false, "write a markdown report")
	cmd.Flags().StringVarP(&reportPath, "output", "o", "", "markdown report path (default <reports dir>/cost-report-<period>-<date>.md)")
	cmd.MarkFlagsMutuallyExclusive("week", "month")
	return cmd
}
