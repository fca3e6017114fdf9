package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"marketsense/internal/config"
	"marketsense/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		Long: `Serve the assistant over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /v1/catalog
  GET  /v1/price?market=&commodity=
  GET  /v1/scan/{commodity}
  POST /v1/ask
  GET  /v1/history
  GET  /v1/answers/{id}/audio
  GET  /v1/ws
  GET  /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.logger, a.assistant, server.Options{
				Metrics:        a.metrics,
				Gatherer:       a.registry,
				MaxAudioBytes:  a.cfg.Audio.MaxBytes,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx, a.cfg.Server)
			})
			g.Go(func() error {
				<-gctx.Done()
				if ctx.Err() != nil {
					a.logger.Info("Received shutdown signal")
				}
				return nil
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().String(config.FlagAddr, "", "listen address (default :8080)")

	return cmd
}
