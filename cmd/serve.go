package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/todox/internal/server"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	repo, closeHistory, err := r.openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	srv, err := server.New(server.Options{
		Logger: r.logger,
		Factory: func(token string) tasks.APIClient {
			return r.newClient(token, cfg)
		},
		Recorder: recorder(repo),
		Fetch:    fetchOpts(cfg),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return srv.ListenAndServe(ctx, addr)
}
