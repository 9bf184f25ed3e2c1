package cmd

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/output"
	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/internal/recorder"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	var (
		module       string
		filesChanged int
	)

	cmd := &cobra.Command{
		Use:   "log [model] [operation] [inputTokens] [outputTokens]",
		Short: "Record one usage entry manually",
		Args:  cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			usage := model.Usage{
				Model:        argOr(args, 0, "sonnet"),
				Operation:    argOr(args, 1, "test"),
				Module:       module,
				FilesChanged: filesChanged,
			}

			var err error
			if usage.InputTokens, err = parseTokens(argOr(args, 2, "1000")); err != nil {
				return err
			}
			if usage.OutputTokens, err = parseTokens(argOr(args, 3, "500")); err != nil {
				return err
			}

			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			prices := e.cfg.Prices()
			if !prices.Known(usage.Model) {
				e.logger.WithField("model", usage.Model).Warn("Unknown model, using sonnet pricing")
			}

			entry, err := recorder.New(e.cfg.LogPath(), prices).Record(usage)
			if err != nil {
				return err
			}
			e.logger.WithFields(logrus.Fields{
				"file": e.cfg.LogPath(),
				"cost": entry.Cost,
			}).Debug("Recorded usage")

			e.out.Success("✅ Recorded: " + output.FormatCost(entry.Cost))
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "module the work touched")
	cmd.Flags().IntVar(&filesChanged, "files-changed", 0, "number of files changed")
	return cmd
}

func argOr(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func parseTokens(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid token count %q", s)
	}
	return n, nil
}
