// Package main is the aloskill API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aloskill/backend/config"
	"github.com/aloskill/backend/internal/database"
	"github.com/aloskill/backend/internal/logger"
	"github.com/aloskill/backend/pkg/migration"
)

// Version is overridden at build time with -ldflags
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath     string
		migrationsPath string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, migrationsPath)
		},
	}

	cmd := &cobra.Command{
		Use:           "aloskill",
		Short:         "Aloskill learning platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join(".", "config"), "Directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations", filepath.Join(".", "migrations"), "Directory holding SQL migrations")

	cmd.AddCommand(serveCmd, migrateCmd(&configPath, &migrationsPath), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aloskill version %s\n", Version)
		},
	})

	return cmd
}

func migrateCmd(configPath, migrationsPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), *configPath, func(m *database.Manager) error {
				db, err := m.DB()
				if err != nil {
					return err
				}
				return migration.RunMigrations(db, *migrationsPath)
			})
		},
	}, &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = n
			}
			return withDatabase(cmd.Context(), *configPath, func(m *database.Manager) error {
				db, err := m.DB()
				if err != nil {
					return err
				}
				return migration.Rollback(db, *migrationsPath, steps)
			})
		},
	})

	return cmd
}

func newManager(cfg *config.Config, log zerolog.Logger) *database.Manager {
	return database.NewManager(database.Options{
		DSN:        cfg.DatabaseURL,
		MaxRetries: cfg.DBMaxRetries,
	}, log)
}

func withDatabase(ctx context.Context, configPath string, fn func(*database.Manager) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	manager := newManager(cfg, log)
	if err := manager.Connect(ctx); err != nil {
		return err
	}
	defer manager.Close()

	return fn(manager)
}

func serve(ctx context.Context, configPath, migrationsPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := newManager(cfg, log)
	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	db, err := manager.DB()
	if err != nil {
		return err
	}
	if err := migration.RunMigrations(db, migrationsPath); err != nil {
		log.Warn().Err(err).Msg("failed to run migrations")
	}

	app := NewApp(db, manager, cfg, log)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go manager.Monitor(monitorCtx, cfg.HealthCheckInterval)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("environment", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	stopMonitor()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}
