package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecotaxa/ecopart-back-sub000/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted. In-flight pipeline runs are awaited before exit.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.New(r.engine, r.ledger, r.users, r.logger)
	r.logger.Info("serving", "addr", addr, "public_url", r.config.Server.PublicURL)

	return server.ListenAndServe(ctx, addr, router, r.logger)
}
