package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/repositories"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig creates a config file from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Config written to %s", configPath)))
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in [credentials.spotify] with your app's client_id, client_secret, and redirect_uri\n")
	r.writePlain("2. Set [bridge] shared_secret to a long random value\n")
	r.writePlain("3. Run 'spotify-gpt-bridge serve' and then 'spotify-gpt-bridge connect'\n")
	return nil
}

// SetupDatabase initializes the token persistence database.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			config = loaded
		}
	}

	if config.Database.Path == "" {
		return fmt.Errorf("%w: [database] path is not set, token persistence is disabled", shared.ErrInvalidConfig)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := repositories.NewTokenRepository(db).Init(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}
