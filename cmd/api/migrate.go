package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database/migrations"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
		Long: `Apply or revert the embedded SQL migrations against the configured
postgres database. sqlite and mongo deployments prepare their schema on
startup and do not use this command.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := postgresConfig()
			if err != nil {
				return err
			}
			if err := migrations.Up(cfg.Database.URL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := postgresConfig()
			if err != nil {
				return err
			}
			if err := migrations.Down(cfg.Database.URL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations reverted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied and latest migration versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := postgresConfig()
			if err != nil {
				return err
			}
			current, dirty, latest, err := migrations.Version(cfg.Database.URL())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current: %d (dirty: %t)\nlatest:  %d\n", current, dirty, latest)
			return nil
		},
	})

	return cmd
}

func postgresConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("migrate requires the postgres driver, configured driver is %s", cfg.Database.Driver)
	}
	return cfg, nil
}
