package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/or4cl3-ai-1/Chatron9/internal/transport"
)

// #region serve-cmd
func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Planner gRPC API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = root.cfg.Server.Addr
			}
			orch, cleanup, err := root.buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			logger := root.logger.Named("transport")
			srv := transport.NewServer(orch, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv, lis, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr from config)")
	return cmd
}

// serve runs srv until ctx is done, then stops it gracefully.
func serve(ctx context.Context, srv *transport.Server, lis net.Listener, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("planner listening", zap.String("addr", lis.Addr().String()))
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// #endregion serve-cmd
