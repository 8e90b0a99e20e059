// Package gateway exposes the agent to chat bridges over HTTP and
// WebSocket. It is a thin transport adapter: every operation maps onto
// the agent surface, no conversation logic lives here.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raymondbot/raymond/internal/memory"
)

// Agent is the conversational surface the gateway drives.
type Agent interface {
	HandleTurn(ctx context.Context, input string) (string, error)
	ClearShortTerm()
	MemoryCount() int
	SearchMemory(ctx context.Context, keyword string, k int) ([]memory.SearchResult, error)
}

// Config tunes the gateway server.
type Config struct {
	Bind string

	// AuthToken, when non-empty, is required as a bearer token on all
	// endpoints except /health and /metrics.
	AuthToken string
}

// Server is the HTTP/WebSocket gateway.
type Server struct {
	cfg    Config
	agent  Agent
	logger *slog.Logger
	server *http.Server
}

// New creates a Server around agent.
func New(cfg Config, agent Agent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, agent: agent, logger: logger}
	s.server = &http.Server{
		Addr:              cfg.Bind,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes constructs the chi mux with all endpoints wired.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.AuthToken != "" {
			r.Use(bearerAuth(s.cfg.AuthToken))
		}
		r.Post("/chat", s.handleChat)
		r.Get("/memory", s.handleMemoryCount)
		r.Get("/memory/search", s.handleMemorySearch)
		r.Delete("/session", s.handleClearSession)
		r.Get("/ws", s.handleWS)
	})

	return r
}

// Start runs the server until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.cfg.Bind)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"message\": \"...\"}")
		return
	}

	reply, err := s.agent.HandleTurn(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("turn failed", "error", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleMemoryCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.agent.MemoryCount()})
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	results, err := s.agent.SearchMemory(r.Context(), q, k)
	if err != nil {
		s.logger.Error("memory search failed", "error", err)
		writeError(w, http.StatusBadGateway, "memory search failed")
		return
	}
	if results == nil {
		results = []memory.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	s.agent.ClearShortTerm()
	w.WriteHeader(http.StatusNoContent)
}

// bearerAuth rejects requests without the expected bearer token.
func bearerAuth(token string) func(http.Handler) http.Handler {
	expected := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != expected {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
