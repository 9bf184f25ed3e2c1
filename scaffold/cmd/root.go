// Package cmd implements the facio-superpowers command line.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/internal/logging"
	"github.com/vattention/facio-superpowers/scaffold/internal/cache"
	"github.com/vattention/facio-superpowers/scaffold/internal/config"
	"github.com/vattention/facio-superpowers/scaffold/internal/installer"
)

type rootOptions struct {
	repo     string
	cacheDir string
	verbose  bool

	// git is replaced in tests
	git cache.Git
}

// NewRootCmd returns the root command for the installer
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "facio-superpowers",
		Short:         "Install documentation skills and templates into a project",
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			printUsage(console.New(cmd.OutOrStdout()))
			return nil
		},
	}
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		printUsage(console.New(cmd.OutOrStdout()))
	})

	rootCmd.PersistentFlags().StringVar(&opts.repo, "repo", "", "template repository URL (default "+config.DefaultRepoURL+")")
	rootCmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "template cache directory (default $"+config.EnvCacheDir+" or $HOME/.facio-superpowers)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newSyncCmd(opts))

	return rootCmd
}

func printUsage(out *console.Printer) {
	out.Success("\nFacio Superpowers CLI\n")
	out.Plain("Usage:")
	out.Plain("  facio-superpowers init    Initialize project with skills and templates")
	out.Plain("  facio-superpowers sync    Sync skills to latest version")
	out.Blank()
}

// newInstaller wires the installer from flags and the environment
func (o *rootOptions) newInstaller(cmd *cobra.Command) (*installer.Installer, error) {
	cfg, err := config.Load(os.Getenv, o.repo, o.cacheDir)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(o.verbose)
	logger.WithFields(logrus.Fields{
		"repo":  cfg.RepoURL,
		"cache": cfg.CacheDir,
		"dir":   cfg.WorkDir,
	}).Debug("Resolved installer configuration")

	out := console.New(cmd.OutOrStdout())
	git := o.git
	if git == nil {
		git = &cache.ExecGit{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	}

	c := cache.New(cfg.CacheDir, cfg.RepoURL, git, out)
	return installer.New(c, installer.DefaultManifest(), cfg.WorkDir, out, logger), nil
}
