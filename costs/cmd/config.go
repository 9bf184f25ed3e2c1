package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the project cost configuration",
	}
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigSetCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			cfg := e.cfg

			e.out.Plainf("Config file: %s", config.Path(cfg.Root()))
			e.out.Plainf("Log file: %s", cfg.LogPath())
			e.out.Plainf("Reports dir: %s", cfg.ReportsPath())
			e.out.Plainf("Monthly budget: $%.2f", cfg.Budget.Monthly)
			e.out.Plainf("Thresholds: caution %.0f%%, critical %.0f%%", cfg.Budget.Caution*100, cfg.Budget.Critical*100)

			e.out.Plain("Pricing (USD per million tokens):")
			prices := cfg.Prices()
			for _, name := range prices.Models() {
				p := prices[name]
				e.out.Plainf("  %-10s input %.2f  output %.2f", name, p.InputPerMillion, p.OutputPerMillion)
			}

			if cfg.Server == "" {
				e.out.Plain("Team sync: not configured. Run 'facio-costs config set server <url>' and 'facio-costs config set api_key <key>'.")
				return nil
			}
			e.out.Plainf("Server: %s", cfg.Server)
			e.out.Plainf("API Key: %s", maskKey(cfg.APIKey))
			if cfg.ClientID != "" {
				e.out.Plainf("Client ID: %s", cfg.ClientID)
			}
			return nil
		},
	}
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Long:  "Set one configuration value. Keys: " + strings.Join(config.Keys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			if err := e.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(e.cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			e.out.Success("Configuration saved.")
			return nil
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 14 {
		return strings.Repeat("*", len(key))
	}
	return key[:10] + "..." + key[len(key)-4:]
}
