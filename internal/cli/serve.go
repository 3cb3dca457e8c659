package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/sieve/pkg/adapters/http"
)

// ShutdownTimeout bounds how long outstanding requests may run after the
// server is asked to stop.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP API until ctx is done. With watch set, compiled
// schemas follow source changes and /events reports them.
func Serve(ctx context.Context, setup *Setup, port int, watch bool, logger *slog.Logger) error {
	opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
	if setup.Metrics != nil {
		opts = append(opts, httpAdapter.WithMetrics(setup.Metrics.Handler()))
	}
	if setup.Masker.Enabled() {
		opts = append(opts, httpAdapter.WithRedaction(setup.Masker))
	}
	api := httpAdapter.NewServer(setup.Engine, opts...)

	if watch {
		if err := setup.Engine.Watch(ctx, api.Notify); err != nil {
			return fmt.Errorf("watch schemas: %w", err)
		}
		logger.Info("Watching schemas for changes")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting sieve server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			return srv.Close()
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}
