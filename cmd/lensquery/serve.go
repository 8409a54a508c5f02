package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/lensquery/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP host",
		Long:  `Serves the trigger, output, history, cycle and blob routes and polls location until interrupted.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close(logger)

	var cycles web.CycleLister
	if a.cycles != nil {
		cycles = a.cycles
	}
	server := web.NewServer(a.orch, a.surfaces, cycles, a.blobs, cfg.WrapWidth, logger)

	g, gctx := errgroup.WithContext(ctx)
	if a.poller != nil {
		g.Go(func() error { return a.poller.Run(gctx) })
	}
	g.Go(func() error { return server.Run(gctx, cfg.ListenAddr) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}
