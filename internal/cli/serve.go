package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/harness/internal/config"
	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/internal/metrics"
	httpAdapter "github.com/aretw0/harness/pkg/adapters/http"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/session"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP servers.
const ShutdownTimeout = 5 * time.Second

// Serve listens on cfg.HTTP.Port and serves the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
	if err != nil {
		return err
	}
	return ServeListener(ctx, cfg, ln, logger)
}

// ServeListener is Serve on an existing listener. The listener is closed on return.
func ServeListener(ctx context.Context, cfg config.Config, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	cache, closeCache, err := NewCache(ctx, cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer closeCache()

	collector := metrics.NewCollector()
	hooks := domain.MergeHooks(collector.Hooks(), debugHooks(logger))
	sessions := session.NewManager(HarnessFactory(cfg, cache, hooks, logger), session.WithLogger(logger))

	handler, err := httpAdapter.NewHandler(sessions,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(collector.Handler()),
		httpAdapter.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
	)
	if err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting Harness Server", "address", ln.Addr().String(), "engine", cfg.Engine)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		logger.Info("Shutdown signal received, shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		logger.Info("Harness Server stopped gracefully")
		return nil
	}
}
