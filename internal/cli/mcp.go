package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/harness/internal/config"
	"github.com/aretw0/harness/internal/logging"
	mcpAdapter "github.com/aretw0/harness/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// MCPOptions configures the MCP server.
type MCPOptions struct {
	Config    config.Config
	Transport string
	Port      int
	Logger    *slog.Logger
}

// NewMCPServer builds the MCP adapter around one shared harness.
// The returned close function is never nil.
func NewMCPServer(ctx context.Context, opts MCPOptions) (*mcpAdapter.Server, func() error, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	cache, closeCache, err := NewCache(ctx, opts.Config, opts.Logger)
	if err != nil {
		return nil, closeCache, err
	}

	factory := HarnessFactory(opts.Config, cache, debugHooks(opts.Logger), opts.Logger)
	h, err := factory()
	if err != nil {
		closeCache()
		return nil, func() error { return nil }, err
	}

	srv := mcpAdapter.NewServer(h,
		mcpAdapter.WithLogger(opts.Logger),
		mcpAdapter.WithFactory(factory),
	)
	return srv, closeCache, nil
}

// ServeMCP runs the MCP server on the selected transport until it stops or ctx is cancelled.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	if opts.Transport == "" {
		opts.Transport = TransportStdio
	}
	if opts.Transport != TransportStdio && opts.Transport != TransportSSE {
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
	}

	srv, closeCache, err := NewMCPServer(ctx, opts)
	if err != nil {
		return err
	}
	defer closeCache()

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if opts.Transport == TransportStdio {
		logger.Info("Starting Harness MCP Server (Stdio)")
		return srv.ServeStdio()
	}

	logger.Info("Starting Harness MCP Server (SSE)", "port", opts.Port)
	if err := srv.ServeSSE(ctx, opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("MCP Server stopped gracefully")
	return nil
}
