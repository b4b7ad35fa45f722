package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/guidebook/pkg/adapters/http"
	"github.com/aretw0/guidebook/pkg/adapters/mcp"
	"github.com/aretw0/guidebook/pkg/observability"
)

// ShutdownTimeout bounds how long in-flight requests may take on shutdown.
const ShutdownTimeout = 5 * time.Second

// Serve exposes the plan and choices of a profile over HTTP until ctx is done.
func Serve(ctx context.Context, opts RunOptions, addr string) error {
	logger := createLogger(opts.Debug)

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		return err
	}
	streams := httpadapter.NewStreamManager()

	ws, err := OpenWorkspace(ctx, opts, logger, metrics.Hooks(), streams.Hooks())
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close workspace", "err", err)
		}
	}()

	srv := &http.Server{
		Addr: addr,
		Handler: httpadapter.NewHandler(ws.Engine,
			httpadapter.WithMetrics(metrics.Handler()),
			httpadapter.WithStreams(streams),
			httpadapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(stdout, "Serving '%s' (profile '%s') on %s", opts.LeavesPath, ws.Profile, addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		printSystemMessage(stdout, "Server stopped gracefully.")
		return nil
	}
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP exposes the guidebook as Model Context Protocol tools.
// The stdio transport owns stdout, so nothing else is printed there.
func ServeMCP(ctx context.Context, opts RunOptions, transport string, port int) error {
	logger := createLogger(opts.Debug)

	ws, err := OpenWorkspace(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close workspace", "err", err)
		}
	}()

	srv := mcp.NewServer(ws.Engine, logger)
	switch transport {
	case TransportStdio:
		logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		err := srv.ServeSSE(ctx, port)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
	}
}
