// Package cmd implements the facio-costs-server command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/vattention/facio-superpowers/internal/console"
	"github.com/vattention/facio-superpowers/internal/logging"
	"github.com/vattention/facio-superpowers/server/internal/auth"
	"github.com/vattention/facio-superpowers/server/internal/database"
	"github.com/vattention/facio-superpowers/server/internal/handlers"
	"github.com/vattention/facio-superpowers/server/internal/metrics"
	"github.com/vattention/facio-superpowers/server/internal/middleware"
)

const serviceName = "facio-costs-server"

type rootOptions struct {
	port   string
	dbPath string

	logger *logrus.Entry
}

// NewRootCmd returns the root command for the team server
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{logger: logging.NewServiceLogger(serviceName)})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Collect usage records from facio-costs clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.serve(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.port, "port", getEnv("PORT", "8080"), "listen port ($PORT)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", getEnv("DB_PATH", "./facio-costs.db"), "SQLite database path ($DB_PATH)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.serve(cmd.Context())
		},
	})
	rootCmd.AddCommand(newCreateKeyCmd(opts))

	return rootCmd
}

func newCreateKeyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create-key <name>",
		Short: "Issue a team API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			record, plain, err := auth.GenerateAPIKey(args[0])
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			if err := db.CreateAPIKey(record); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}

			out := console.New(cmd.OutOrStdout())
			out.Success(fmt.Sprintf("✅ Created API key for %s", args[0]))
			out.Plain(plain)
			out.Warn("Store it now, it cannot be shown again.")
			return nil
		},
	}
}

func (o *rootOptions) openDB() (*database.DB, error) {
	db, err := database.Open(o.dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// serve runs until ctx is cancelled, then drains in-flight requests
func (o *rootOptions) serve(ctx context.Context) error {
	db, err := o.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	h := handlers.New(db, metrics.NewCollector(), o.logger)
	// 1 request per second sustained, bursts of 30
	limiter := middleware.NewIPRateLimiter(rate.Limit(1), 30)
	srv := &http.Server{
		Addr:              ":" + o.port,
		Handler:           handlers.Router(h, auth.NewMiddleware(db, o.logger), limiter, o.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		o.logger.WithFields(logrus.Fields{"addr": srv.Addr, "db": o.dbPath}).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	o.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
