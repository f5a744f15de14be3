package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/server"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "todo-service",
		Short: "Todo and attachment backend",
		// Running without a subcommand serves the API.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, appLogger, nil
}

func runServe(ctx context.Context) error {
	cfg, appLogger, err := loadConfig()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	app, err := buildApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Error("failed to initialize application")
		return err
	}

	apiServer := server.NewServer(server.Options{
		Config:      cfg,
		Todos:       app.todos,
		Attachments: app.attachments,
		DB:          app.db,
		Store:       app.store,
		Logger:      appLogger,
	})

	done := make(chan struct{})
	go gracefulShutdown(apiServer, app, cfg, appLogger, done)

	appLogger.Infow("starting server", "addr", apiServer.Addr, "driver", cfg.Database.Driver, "storage", cfg.Storage.Type)
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	appLogger.Info("graceful shutdown complete")
	return nil
}

func gracefulShutdown(apiServer *http.Server, app *application, cfg *config.Config, log *logger.Logger, done chan<- struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	if err := app.Close(); err != nil {
		log.WithError(err).Error("error closing connections")
	} else {
		log.Info("connections closed")
	}

	close(done)
}
