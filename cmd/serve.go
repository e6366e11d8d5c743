package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/desertthunder/soundpy/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}
	store, err := r.Store(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, engine, store, r.logger).ListenAndServe(ctx)
}
