package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Wrote %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id to your app's client ID\n")
	r.writePlain("2. Add %s as a redirect URI in the Spotify developer dashboard\n", shared.DefaultConfig().Credentials.Spotify.RedirectURI)
	r.writePlain("3. Run 'spx auth login --open'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	if config.Auth.TokenStore != "sqlite" {
		r.writePlain("→ Set auth.token_store = \"sqlite\" to keep credentials in %s\n", config.Database.Path)
	}
	return r.writePlain("✓ Database ready at %s\n", config.Database.Path)
}
