package main

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
)

// Run starts the feeds and servers and blocks until ctx is cancelled or one
// of the servers fails; everything is shut down before it returns.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	a.Gateway.Start(ctx)
	if err := a.Feeds.Start(ctx); err != nil {
		a.shutdown()
		return err
	}

	// 1. HTTP + WebSocket
	g.Go(func() error {
		if err := a.API.Start(); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	// 2. gRPC Control Server
	if a.Control != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", a.Config.GrpcHost, a.Config.GrpcPort))
		if err != nil {
			a.shutdown()
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
		g.Go(func() error {
			return a.Control.Serve(lis)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("Shutting down...")
		a.shutdown()
		return nil
	})

	err := g.Wait()
	a.Logger.Info("Shutdown complete.")
	return err
}

// -----------------------------------------------------------------------------

// shutdown stops producers before consumers: feeds, servers, then the
// persistence queue and the stores it writes to.
func (a *App) shutdown() {
	a.Feeds.Stop()
	if err := a.API.Stop(); err != nil {
		a.Logger.Warning("API shutdown: %v", err)
	}
	if a.Control != nil {
		a.Control.Stop()
	}
	a.Gateway.Stop()
	if err := a.closeSessions(); err != nil {
		a.Logger.Warning("Session store close: %v", err)
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warning("Database close: %v", err)
	}
}
