package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/soundpy/internal/shared"
	"github.com/desertthunder/soundpy/internal/ui"
	"github.com/urfave/cli/v3"
)

// loadConfig reads configPath, creating it from the embedded template when it does not exist.
//
// Any failure falls back to the runner's config.
func (r *Runner) loadConfig(configPath string) *shared.Config {
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using current config", "error", err)
			return r.config
		}
		r.logger.Info("config file created", "path", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using current config", "error", err)
		return r.config
	}
	if err := shared.ApplyEnv(config); err != nil {
		r.logger.Warn("failed to apply environment, using file values", "error", err)
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	driver := shared.Driver(config.Database.Driver)

	r.logger.Info("initializing database", "driver", driver, "dsn", config.Database.DSN)

	db, err := shared.NewDatabase(driver, config.Database.DSN, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, driver, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.DSN)
	return r.writePlainln("%s", ui.Styles.OK("Database ready (%s)", driver))
}

// RollbackDatabase reverts the most recently applied migration.
func (r *Runner) RollbackDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	driver := shared.Driver(config.Database.Driver)

	db, err := shared.NewDatabase(driver, config.Database.DSN, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db, driver); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	return r.writePlainln("%s", ui.Styles.OK("Rolled back latest migration"))
}
