package cmd

import (
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize project with skills and templates",
		// extra arguments and unknown flags are ignored
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := opts.newInstaller(cmd)
			if err != nil {
				return err
			}
			return inst.Init(cmd.Context())
		},
	}
}
