package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/familyhub-golang/internal/app"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/01moynul/familyhub-golang/internal/database"
	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "familyhub-api",
	Short: "Family Hub subscriptions and planner API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseDSN == "" {
			return errors.New("config: DB_DSN_PRIMARY is required")
		}
		logger := logging.Init(cfg.LogLevel, cfg.LogPretty)

		db, err := database.OpenDB(cmd.Context(), cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		logger.Info().Msg("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(gin.ReleaseMode)

	// 1. --- Main Database Connection ---
	db, err := database.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to primary database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 2. --- Application Setup ---
	gateway := billing.NewStripeGateway(cfg.StripeSecretKey)
	svc := app.New(cfg, db, gateway, email.LogSender{Logger: logger.With().Str("component", "email").Logger()}, logger)

	// 3. --- Background Workers ---
	// Abandoned checkouts never receive a webhook; the sweeper expires them.
	go svc.Sweeper.Run(ctx)

	// 4. --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           svc.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting Family Hub API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
