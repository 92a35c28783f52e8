// api/cmd/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/bootstrap"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
)

const shutdownTimeout = 15 * time.Second

// httpServer is the part of *http.Server that Run drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

// realServer adapts *http.Server to httpServer.
type realServer struct{ *http.Server }

// Addr returns the configured listen address.
func (r realServer) Addr() string { return r.Server.Addr }

// serverBuilder returns the server and its cleanup. Production wraps
// bootstrap.NewServer; tests inject a fake.
type serverBuilder func() (httpServer, func(), error)

// Run serves until a signal arrives or the listener fails, then drains
// in-flight requests. It returns the process exit code.
func Run(build serverBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	// ListenAndServe blocks, so serve from a goroutine.
	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("reset-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for a shutdown signal or a listener failure.
	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		// Exit non-zero so the orchestrator restarts the process.
		lg.Error().Err(err).Msg("server crashed")
		return 1
	}

	// Drain in-flight requests, bounded by shutdownTimeout.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		// Graceful shutdown failed; drop remaining connections.
		lg.Error().Err(err).Msg("graceful shutdown failed")
		_ = srv.Close()
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

// buildFromBootstrap wraps bootstrap.NewServer into a serverBuilder.
func buildFromBootstrap() (httpServer, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, nil, err
	}
	return realServer{srv}, cleanup, nil
}

func main() {
	// Configure the global zerolog logger from LOG_LEVEL / LOG_FORMAT.
	logger.Init()

	// Translate SIGINT / SIGTERM into a graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Run the server and exit with its code.
	os.Exit(Run(buildFromBootstrap, sigCh, zlog.Logger))
}
