package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines the interface for the Relay session API.
type Engine interface {
	StartSession(ctx context.Context, init domain.SessionInit) (string, error)
	PostMessage(ctx context.Context, sessionID, text string) (*domain.Outcome, error)
	ResolveApproval(ctx context.Context, sessionID string, approved bool, reason string) (*domain.Outcome, error)
	Checkpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]string, error)
	Mermaid(ctx context.Context, sessionID string) (string, error)
}

// Server serves the session API over HTTP.
type Server struct {
	Engine   Engine
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer exposes GET /metrics from the given registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	SessionID  string         `json:"session_id,omitempty"`
	CustomerID int            `json:"customer_id,omitempty"`
	Profile    domain.Profile `json:"profile,omitempty"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Content string `json:"content"`
}

// ApprovalRequest is the body of POST /sessions/{id}/approval.
type ApprovalRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/graph", s.GetGraph)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/graph", s.GetGraph)
			r.Post("/messages", s.PostMessage)
			r.Post("/approval", s.ResolveApproval)
		})
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.CustomerID < 0 {
		s.writeError(w, r, "StartSession", &badRequest{"customer_id must be positive"})
		return
	}

	id, err := s.Engine.StartSession(r.Context(), domain.SessionInit{
		SessionID:  body.SessionID,
		CustomerID: body.CustomerID,
		Profile:    body.Profile,
	})
	if err != nil {
		s.writeError(w, r, "StartSession", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, r, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	cp, err := s.Engine.Checkpoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "GetSession", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cp)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage handles POST /sessions/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Content == "" {
		s.writeError(w, r, "PostMessage", &badRequest{"content is required"})
		return
	}

	outcome, err := s.Engine.PostMessage(r.Context(), chi.URLParam(r, "id"), body.Content)
	if err != nil {
		s.writeError(w, r, "PostMessage", err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// ResolveApproval handles POST /sessions/{id}/approval.
func (s *Server) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	var body ApprovalRequest
	if !s.decode(w, r, &body) {
		return
	}

	outcome, err := s.Engine.ResolveApproval(r.Context(), chi.URLParam(r, "id"), body.Approved, body.Reason)
	if err != nil {
		s.writeError(w, r, "ResolveApproval", err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

// GetGraph handles GET /graph and GET /sessions/{id}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	chart, err := s.Engine.Mermaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "GetGraph", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(chart))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, "decode", &badRequest{"invalid request body: " + err.Error()})
		return false
	}
	return true
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		bad        *badRequest
		routing    *domain.RoutingError
		completion *domain.CompletionError
	)
	switch {
	case errors.As(err, &bad),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrApprovalPending),
		errors.Is(err, domain.ErrNotSuspended),
		errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict
	case errors.As(err, &routing),
		errors.Is(err, domain.ErrProfileUnavailable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &completion):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.Logger.Log(r.Context(), level, op+" failed",
		"session_id", chi.URLParam(r, "id"),
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"err", err)
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
