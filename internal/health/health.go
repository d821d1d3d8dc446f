// Package health serves the relay's operational HTTP surface.
//
// The endpoints are read-only and unauthenticated, intended for probes and
// dashboards on an internal listen address:
//
//   - /        — service identity: name, version, status.
//   - /health  — liveness plus process stats (uptime, memory).
//   - /stats   — relay counters, currently the number of active sessions.
//   - /metrics — Prometheus scrape endpoint.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the operational endpoints. Safe for concurrent use.
type Handler struct {
	service      string
	version      string
	started      time.Time
	sessionCount func() int
}

// Config configures a [Handler].
type Config struct {
	// Service is the reported service name. Default: "chatbot".
	Service string

	// Version is the reported build version.
	Version string

	// SessionCount reports the number of active sessions. May be nil,
	// in which case /stats reports zero.
	SessionCount func() int
}

// New creates a Handler. The uptime clock starts now.
func New(cfg Config) *Handler {
	if cfg.Service == "" {
		cfg.Service = "chatbot"
	}
	return &Handler{
		service:      cfg.Service,
		version:      cfg.Version,
		started:      time.Now(),
		sessionCount: cfg.SessionCount,
	}
}

// Router builds the HTTP router for all operational endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/stats", h.stats)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   h.service,
		"version":   h.version,
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / 1024 / 1024,
		"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	var sessions int
	if h.sessionCount != nil {
		sessions = h.sessionCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_sessions": sessions,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
