package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/session"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Server serves the harness over HTTP.
type Server struct {
	Sessions     *session.Manager
	Metrics      http.Handler
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger. The default logs JSON to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics mounts a handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.MaxBodyBytes = n
		}
	}
}

// NewHandler creates a new HTTP handler over the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s := &Server{
		Sessions:     sessions,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Logger:       slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	validate, err := requestValidator(doc, s.rejectRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to build request validator: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)
	r.Use(validate)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(RawSpec())
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/evaluate", s.Evaluate)
	r.Get("/sessions", s.ListSessions)
	r.Post("/sessions", s.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Delete("/", s.DeleteSession)
		r.Get("/input", s.GetInput)
		r.Put("/input", s.SetInput)
		r.Post("/run", s.RunSession)
		r.Get("/output", s.GetOutput)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody is a transport guard; the harness itself never limits input.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.Logger.Warn("Request rejected", "error", err)
	writeError(w, http.StatusBadRequest, err)
}

// -- Payloads --

type inputRequest struct {
	Input string `json:"input"`
}

type runResponse struct {
	Output   string `json:"output"`
	Sequence uint64 `json:"sequence"`
	Rendered bool   `json:"rendered"`
	Stale    bool   `json:"stale,omitempty"`
	Error    string `json:"error,omitempty"`
}

func toRunResponse(o domain.Outcome, current string) runResponse {
	resp := runResponse{
		Output:   current,
		Sequence: o.Sequence,
		Rendered: o.Rendered,
		Stale:    o.Stale,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

// -- Handlers --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "harness-http",
		"version":     strings.TrimSpace(harness.Version),
		"api_version": apiVersion,
		"sessions":    s.Sessions.Len(),
	})
}

// Evaluate handles the POST /evaluate request: one cycle on a throwaway harness.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body inputRequest
	if !s.decode(w, r, &body) {
		return
	}

	h, err := s.Sessions.New()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		s.Logger.Error("Evaluate: harness creation failed", "error", err)
		return
	}

	h.SetInput(body.Input)
	// evaluations outlive the client
	outcome, err := h.Run(context.WithoutCancel(r.Context()))
	s.writeOutcome(w, outcome, h.Output(), err)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		s.Logger.Error("CreateSession failed", "error", err)
		return
	}
	s.Logger.Info("Session created", "session_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInput handles the GET /sessions/{id}/input request.
func (s *Server) GetInput(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inputRequest{Input: h.Input()})
}

// SetInput handles the PUT /sessions/{id}/input request.
func (s *Server) SetInput(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var body inputRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Sessions.SetInput(r.Context(), id, body.Input); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSession handles the POST /sessions/{id}/run request.
func (s *Server) RunSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	outcome, err := s.Sessions.Run(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.writeSessionError(w, err)
		return
	}

	h, lookupErr := s.Sessions.Get(id)
	current := outcome.Output
	if lookupErr == nil {
		current = h.Output()
	}
	s.writeOutcome(w, outcome, current, err)
}

// GetOutput handles the GET /sessions/{id}/output request.
func (s *Server) GetOutput(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": h.Output()})
}

// -- Helpers --

// sessionID binds the {id} path parameter.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter id: %w", err))
		return "", false
	}
	return id, true
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*harness.Harness, bool) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return nil, false
	}
	h, err := s.Sessions.Get(id)
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return h, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.rejectRequest(w, err)
		return false
	}
	return true
}

func (s *Server) writeOutcome(w http.ResponseWriter, outcome domain.Outcome, current string, err error) {
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
		s.Logger.Warn("Evaluation failed", "error", err, "sequence", outcome.Sequence)
	}
	writeJSON(w, status, toRunResponse(outcome, current))
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
	s.Logger.Error("Session operation failed", "error", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
