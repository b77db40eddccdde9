package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller is the monitor surface the presentation layer consumes: the
// observable state snapshot plus the two user intents.
type Controller interface {
	State() domain.PollState
	TriggerManualRefresh()
	SetAutoRefresh(enabled bool)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the poll state and user intents over HTTP, along with
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	controller Controller
	logger     *slog.Logger
}

// NewServer creates an HTTP server with state, intent, and observability
// routes.
func NewServer(addr string, controller Controller, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		controller: controller,
		logger:     logger,
	}

	mux.Handle("/state", methodOnly(http.MethodGet, http.HandlerFunc(s.handleState)))
	mux.Handle("/refresh", methodOnly(http.MethodPost, http.HandlerFunc(s.handleRefresh)))
	mux.Handle("/autorefresh", methodOnly(http.MethodPut, http.HandlerFunc(s.handleAutoRefresh)))
	mux.Handle("/healthz", methodOnly(http.MethodGet, http.HandlerFunc(s.handleHealth)))
	mux.Handle("/readyz", methodOnly(http.MethodGet, http.HandlerFunc(s.handleReady)))
	mux.Handle("/metrics", methodOnly(http.MethodGet, promhttp.Handler()))

	return s
}

// methodOnly restricts a route to one HTTP method, answering anything else
// with 405 and an Allow header, matching Go 1.22+ ServeMux method patterns.
func methodOnly(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.controller.TriggerManualRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `body must be {"enabled": true|false}`})
		return
	}

	s.controller.SetAutoRefresh(*body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"auto_refresh_enabled": *body.Enabled})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.controller.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
