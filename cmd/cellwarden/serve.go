package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/orchestrator"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the orchestrator",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to the configuration file (TOML or JSON)",
			Aliases: []string{"c"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error, or trace",
			Value: "info",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")
		if configPath == "" {
			return cli.Exit("The --config flag is required", 1)
		}

		SetupLogger(cmd.String("log-level"))
		logger := slog.Default()

		cfg, err := config.NewConfig(configPath)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to load config: %w", err), 1)
		}

		logger.Info("Starting orchestrator",
			"config", configPath,
			"name", cfg.Name,
			"clients", len(cfg.Clients))

		if err := orchestrator.Run(ctx, cfg, logger.Handler()); err != nil {
			return cli.Exit(fmt.Errorf("orchestrator failed: %w", err), 1)
		}

		logger.Info("Shutdown complete")
		return nil
	},
}
