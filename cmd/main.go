package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/soundpy/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	if err := shared.ApplyEnv(config); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}

	logger, closer, err := shared.NewLoggerFromConfig(config.Logging)
	if err != nil {
		shared.NewLogger(nil).Fatalf("invalid logging config: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	err = newApp(runner).Run(context.Background(), os.Args)
	runner.Close()
	closer.Close()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "soundpy",
		Usage:    "Search, mirror and download YouTube playlists",
		Version:  "0.1.0",
		Commands: r.register(),
	}
}
