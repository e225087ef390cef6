// Package api serves the content admin HTTP API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/mentora/internal/auth"
	"github.com/p-n-ai/mentora/internal/dedup"
	"github.com/p-n-ai/mentora/internal/metrics"
)

const maxBodyBytes = 1 << 20

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Config holds dependencies for the HTTP API.
type Config struct {
	Dedup  *dedup.Service
	Users  auth.UserStore
	Tokens *auth.TokenManager
	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
}

// Server holds the handler dependencies.
type Server struct {
	dedup  *dedup.Service
	users  auth.UserStore
	tokens *auth.TokenManager
	checks map[string]CheckFunc
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(cfg Config) http.Handler {
	s := &Server{
		dedup:  cfg.Dedup,
		users:  cfg.Users,
		tokens: cfg.Tokens,
		checks: cfg.Checks,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff(s.tokens))
		r.Post("/detect-duplicates", s.handleDetect)
		r.Post("/detect-duplicates/export", s.handleExport)
		r.Get("/detect-duplicates/stream", s.handleStream)
		r.Post("/delete-duplicates", s.handleDelete)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var failing []string
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failing": failing})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// requestLogger logs each request and records its metrics under the
// matched route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, status, elapsed)

		if route == "/healthz" || route == "/readyz" || route == "/metrics" {
			return
		}
		slog.Info("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
