package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/logging"
)

// RunResponse aligns with the OpenAPI schema and provides a unified structure across adapters.
type RunResponse struct {
	Output   string `json:"output" jsonschema_description:"The rendered text after the evaluation"`
	Sequence uint64 `json:"sequence" jsonschema_description:"Submission number of the evaluation"`
	Rendered bool   `json:"rendered" jsonschema_description:"Whether the output was replaced"`
	Stale    bool   `json:"stale,omitempty" jsonschema_description:"A newer evaluation had already been rendered"`
	Error    string `json:"error,omitempty" jsonschema_description:"The surfaced failure, if any"`
}

// InputResponse carries the current input text.
type InputResponse struct {
	Input string `json:"input" jsonschema_description:"The current input text"`
}

// Factory builds the harness used by stateless evaluations.
type Factory func() (*harness.Harness, error)

// Server exposes one shared harness as an MCP Server.
type Server struct {
	harness   *harness.Harness
	factory   Factory
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFactory sets how the evaluate tool builds its throwaway harness.
// Without it, evaluate runs on a clone of the shared harness.
func WithFactory(f Factory) Option {
	return func(s *Server) {
		s.factory = f
	}
}

// NewServer creates a new MCP Server instance around h.
func NewServer(h *harness.Harness, opts ...Option) *Server {
	s := &Server{
		harness:   h,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("harness-mcp", strings.TrimSpace(harness.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = h.Clone
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: evaluate
	s.mcpServer.AddTool(mcp.NewTool("evaluate",
		mcp.WithDescription("Evaluate an input once, without touching the shared input or output."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Text handed to the engine verbatim")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleEvaluate))

	// TOOL: set_input
	s.mcpServer.AddTool(mcp.NewTool("set_input",
		mcp.WithDescription("Replace the shared input text. Does not evaluate."),
		mcp.WithString("input", mcp.Required(), mcp.Description("New input text")),
		mcp.WithOutputSchema[InputResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetInput))

	// TOOL: get_input
	s.mcpServer.AddTool(mcp.NewTool("get_input",
		mcp.WithDescription("Read the shared input text."),
		mcp.WithOutputSchema[InputResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetInput))

	// TOOL: run
	s.mcpServer.AddTool(mcp.NewTool("run",
		mcp.WithDescription("Evaluate the shared input and render the result."),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	// TOOL: get_output
	s.mcpServer.AddTool(mcp.NewTool("get_output",
		mcp.WithDescription("Read the currently rendered output."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.harness.Output()), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	input, _ := args["input"].(string)

	h, err := s.factory()
	if err != nil {
		return RunResponse{}, fmt.Errorf("failed to create harness: %w", err)
	}
	h.SetInput(input)
	outcome, err := h.Run(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn("MCP Evaluate: evaluation failed", "error", err)
	}
	return toRunResponse(outcome.Sequence, outcome.Rendered, outcome.Stale, h.Output(), err), nil
}

func (s *Server) handleSetInput(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InputResponse, error) {
	input, ok := args["input"].(string)
	if !ok {
		return InputResponse{}, fmt.Errorf("input must be a string")
	}
	s.harness.SetInput(input)
	return InputResponse{Input: s.harness.Input()}, nil
}

func (s *Server) handleGetInput(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InputResponse, error) {
	return InputResponse{Input: s.harness.Input()}, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	outcome, err := s.harness.Run(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn("MCP Run: evaluation failed", "error", err, "sequence", outcome.Sequence)
	}
	return toRunResponse(outcome.Sequence, outcome.Rendered, outcome.Stale, s.harness.Output(), err), nil
}

func toRunResponse(seq uint64, rendered, stale bool, output string, err error) RunResponse {
	resp := RunResponse{
		Output:   output,
		Sequence: seq,
		Rendered: rendered,
		Stale:    stale,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) registerResources() {
	// EXPOSE: harness://output
	s.mcpServer.AddResource(mcp.NewResource("harness://output", "Rendered Output",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "harness://output",
				MIMEType: "application/json",
				Text:     s.harness.Output(),
			},
		}, nil
	})
}
