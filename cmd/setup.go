package main

import (
	"context"

	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config file and initialize the session database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// Setup creates a config file from the embedded example and, when the sqlite
// backend is configured, applies the session schema migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warnf("config file not created: %v", err)
	} else {
		r.logger.Infof("wrote starter config to %s", path)
	}

	if err := r.loadConfig(path); err != nil {
		return err
	}

	if r.config.Session.Backend == "sqlite" {
		db, err := shared.NewDatabase(r.config.Session.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			return err
		}
		r.logger.Infof("session database ready at %s", r.config.Session.DatabasePath)
	}

	return r.writePlain("✓ Setup complete\n")
}
