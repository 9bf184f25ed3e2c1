// Package cmd implements the facio-costs command line.
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/config"
	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/internal/logging"
	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/internal/parser"
)

type rootOptions struct {
	dir     string
	verbose bool

	now func() time.Time
}

// NewRootCmd returns the root command for the cost tool
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{now: time.Now})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "facio-costs",
		Short:         "Track and report AI usage cost",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			printUsage(console.New(cmd.OutOrStdout()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "project directory (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	for _, p := range []aggregator.Period{aggregator.PeriodDay, aggregator.PeriodWeek, aggregator.PeriodMonth} {
		rootCmd.AddCommand(newReportCmd(opts, p))
	}
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newLogCmd(opts))
	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newDailyCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newTeamCmd(opts))

	return rootCmd
}

func printUsage(out *console.Printer) {
	out.Section("\nFacio Superpowers cost tool\n")
	out.Plain("Usage:")
	out.Plain("  facio-costs today [budget]                  # today's report")
	out.Plain("  facio-costs week [budget]                   # this week's report")
	out.Plain("  facio-costs month [budget]                  # this month's report")
	out.Plain("  facio-costs export <path> [period]          # export a report")
	out.Plain("  facio-costs log <model> <op> <in> <out>     # record usage manually")
	out.Plain("  facio-costs analyze [--week|--month] [--report]")
	out.Plain("  facio-costs daily [period]                  # per-day table")
	out.Plain("  facio-costs config show|set <key> <value>")
	out.Plain("  facio-costs sync [install|start|stop|uninstall|status]")
	out.Plain("  facio-costs team [period]                   # team-wide report")
	out.Blank()
	out.Plain("Examples:")
	out.Plain("  facio-costs today 50                        # today's report, $50 budget")
	out.Plain("  facio-costs month 100                       # this month's report, $100 budget")
	out.Plain("  facio-costs export report.json month")
	out.Blank()
}

// env bundles what every command needs, built from flags once per invocation
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    *console.Printer
	now    time.Time
}

func (o *rootOptions) env(cmd *cobra.Command) (*env, error) {
	root := o.dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(o.verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	return &env{
		cfg:    cfg,
		logger: logger,
		out:    console.New(cmd.OutOrStdout()),
		now:    o.now(),
	}, nil
}

// readWindow reads the usage log and keeps records inside the window
func (e *env) readWindow(window aggregator.Options) ([]model.UsageRecord, error) {
	return readRecords(e.cfg, e.logger, window)
}

func readRecords(cfg *config.Config, logger logrus.FieldLogger, window aggregator.Options) ([]model.UsageRecord, error) {
	reader := parser.NewReader(cfg.Prices(), logger)
	result, err := reader.ReadFile(cfg.LogPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read usage log: %w", err)
	}
	if result.Skipped > 0 {
		logger.WithFields(logrus.Fields{
			"file":    cfg.LogPath(),
			"skipped": result.Skipped,
		}).Warn("Skipped malformed usage log lines")
	}
	return aggregator.FilterRecords(result.Records, window), nil
}

// parseBudget reads an optional budget argument. Absent means no banding.
func parseBudget(args []string) (float64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	b, err := strconv.ParseFloat(args[0], 64)
	if err != nil || b < 0 {
		return 0, fmt.Errorf("invalid budget %q", args[0])
	}
	return b, nil
}

// parseDate accepts YYYYMMDD (local midnight) or RFC3339
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("20060102", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYYMMDD or RFC3339", s)
	}
	return t, nil
}

// windowFlags are the --since/--until overrides shared by reporting commands
type windowFlags struct {
	since string
	until string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.since, "since", "", "start date, inclusive (YYYYMMDD or RFC3339)")
	cmd.Flags().StringVar(&w.until, "until", "", "end date, inclusive day (YYYYMMDD) or exclusive instant (RFC3339)")
}

// resolve returns the period window, replaced by explicit bounds when set
func (w *windowFlags) resolve(p aggregator.Period, now time.Time) (aggregator.Options, error) {
	opts := aggregator.Window(p, now)
	if w.since == "" && w.until == "" {
		return opts, nil
	}

	opts = aggregator.Options{}
	if w.since != "" {
		t, err := parseDate(w.since, now.Location())
		if err != nil {
			return opts, err
		}
		opts.Since = t
	}
	if w.until != "" {
		t, err := parseDate(w.until, now.Location())
		if err != nil {
			return opts, err
		}
		if len(w.until) == len("20060102") {
			// include the entire day
			t = t.AddDate(0, 0, 1)
		}
		opts.Until = t
	}
	return opts, nil
}
