package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vattention/facio-superpowers/costs/internal/config"
	"github.com/vattention/facio-superpowers/costs/internal/sync"
	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/logging"
)

const serviceName = "facio-costs-sync"

var errNotConfigured = fmt.Errorf("not configured, run 'facio-costs config set server <url>' and 'facio-costs config set api_key <key>' first")

type syncOptions struct {
	interval time.Duration
	dryRun   bool
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	so := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync usage records to the team server",
		Long:  "Sync usage records to the team server once, or manage a background service that syncs periodically.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			if !e.cfg.Configured() {
				return errNotConfigured
			}
			return syncOnce(cmd.Context(), e, sync.NewClient(e.cfg), so.dryRun)
		},
	}

	cmd.Flags().BoolVar(&so.dryRun, "dry-run", false, "show what would be synced without sending")
	cmd.PersistentFlags().DurationVar(&so.interval, "interval", time.Hour, "sync interval for service mode (e.g., 1h, 30m)")

	cmd.AddCommand(
		newServiceCmd(opts, so, "install", "Install and start the background service"),
		newServiceCmd(opts, so, "start", "Start the background service"),
		newServiceCmd(opts, so, "stop", "Stop the background service"),
		newServiceCmd(opts, so, "uninstall", "Remove the background service"),
		newServiceCmd(opts, so, "status", "Show service status"),
	)

	run := newServiceCmd(opts, so, "run", "Run the sync loop (used by the service manager)")
	run.Hidden = true
	cmd.AddCommand(run)

	return cmd
}

// syncOnce pushes every record the server may not have seen yet
func syncOnce(ctx context.Context, e *env, client *sync.Client, dryRun bool) error {
	lastSync, err := client.GetSyncStatus(ctx)
	if err != nil {
		e.out.Warn(fmt.Sprintf("Warning: could not get sync status: %v", err))
	}

	records, err := e.readWindow(aggregator.Options{})
	if err != nil {
		return err
	}

	toSync := sync.Pending(records, lastSync)
	if len(toSync) == 0 {
		e.out.Plain("No new records to sync.")
		return nil
	}

	e.out.Plainf("Found %d records to sync.", len(toSync))
	if dryRun {
		e.out.Plain("Dry run - no data sent.")
		return nil
	}

	inserted, err := client.Sync(ctx, toSync)
	if err != nil {
		return fmt.Errorf("sync failed after %d records: %w", inserted, err)
	}

	e.out.Success(fmt.Sprintf("Sync complete. %d records inserted.", inserted))
	return nil
}

// syncService implements service.Interface for background syncing
type syncService struct {
	interval time.Duration
	root     string
	logger   logrus.FieldLogger

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *syncService) Start(svc service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *syncService) Stop(svc service.Service) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

func (s *syncService) run(ctx context.Context) {
	defer close(s.done)

	// sync immediately on start
	s.doSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.doSync(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *syncService) doSync(ctx context.Context) {
	// re-read so config changes apply without reinstalling
	cfg, err := config.Load(s.root)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load config")
		return
	}
	if !cfg.Configured() {
		s.logger.Error("Not configured. Run 'facio-costs config' first.")
		return
	}

	client := sync.NewClient(cfg)
	lastSync, err := client.GetSyncStatus(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Could not get sync status")
	}

	records, err := readRecords(cfg, s.logger, aggregator.Options{})
	if err != nil {
		s.logger.WithError(err).Error("Error reading usage data")
		return
	}

	toSync := sync.Pending(records, lastSync)
	if len(toSync) == 0 {
		return
	}

	inserted, err := client.Sync(ctx, toSync)
	if err != nil {
		s.logger.WithError(err).Error("Error syncing")
		return
	}
	s.logger.WithField("inserted", inserted).Info("Synced records")
}

func newServiceCmd(opts *rootOptions, so *syncOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if so.interval <= 0 {
				return fmt.Errorf("invalid interval %s: must be positive", so.interval)
			}
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			root := e.cfg.Root()

			svcConfig := &service.Config{
				Name:             serviceName,
				DisplayName:      "Facio Costs Sync Service",
				Description:      "Automatically syncs AI usage cost records to the team server",
				Arguments:        []string{"sync", "run", "--dir=" + root, fmt.Sprintf("--interval=%s", so.interval)},
				WorkingDirectory: root,
			}

			svc := &syncService{
				interval: so.interval,
				root:     root,
				logger:   logging.NewServiceLogger(serviceName),
			}
			s, err := service.New(svc, svcConfig)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			switch action {
			case "install":
				if !e.cfg.Configured() {
					return errNotConfigured
				}
				if err := s.Install(); err != nil {
					return fmt.Errorf("failed to install service: %w", err)
				}
				if err := s.Start(); err != nil {
					return fmt.Errorf("service installed but failed to start: %w", err)
				}
				e.out.Success("Service installed and started.")
				e.out.Plainf("Sync interval: %s", so.interval)

			case "start":
				if err := s.Start(); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
				e.out.Success("Service started.")

			case "stop":
				if err := s.Stop(); err != nil {
					return fmt.Errorf("failed to stop service: %w", err)
				}
				e.out.Success("Service stopped.")

			case "uninstall":
				_ = s.Stop()
				if err := s.Uninstall(); err != nil {
					return fmt.Errorf("failed to uninstall service: %w", err)
				}
				e.out.Success("Service uninstalled.")

			case "status":
				status, err := s.Status()
				if err != nil {
					e.out.Plainf("Service status: not installed or error (%v)", err)
					return nil
				}
				switch status {
				case service.StatusRunning:
					e.out.Plain("Service status: running")
				case service.StatusStopped:
					e.out.Plain("Service status: stopped")
				default:
					e.out.Plain("Service status: unknown")
				}

			case "run":
				return s.Run()
			}
			return nil
		},
	}
}
