package cmd

import (
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync skills to latest version",
		// extra arguments and unknown flags are ignored
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := opts.newInstaller(cmd)
			if err != nil {
				return err
			}
			return inst.Sync(cmd.Context())
		},
	}
}
