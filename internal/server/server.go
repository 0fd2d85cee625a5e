// Package server exposes the HTTP API the map client consumes: session and
// view state, layer toggles, comparison areas with clipped GeoJSON payloads,
// share links and live fetch status.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/coordinator"
	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/share"
)

// Config configures the API server.
type Config struct {
	Addr        string
	Coordinator *coordinator.Coordinator
	Store       *area.Store
	Logger      *slog.Logger
}

// Server serves the REST and SSE API. The camera/view state lives here; area
// and layer state live in the store and coordinator.
type Server struct {
	coord  *coordinator.Coordinator
	store  *area.Store
	logger *slog.Logger

	mu   sync.Mutex
	view share.State

	httpSrv *http.Server
}

// New creates the server. The coordinator and store must be non-nil.
func New(cfg Config) *Server {
	s := &Server{
		coord:  cfg.Coordinator,
		store:  cfg.Store,
		logger: cfg.Logger,
		view:   share.NewState(),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the full route tree wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("PUT /api/session/view", s.handleUpdateView)

	mux.HandleFunc("GET /api/layers", s.handleLayers)
	mux.HandleFunc("POST /api/layers/{id}/toggle", s.handleToggleLayer)

	mux.HandleFunc("POST /api/areas", s.handleCreateArea)
	mux.HandleFunc("DELETE /api/areas", s.handleClearAreas)
	mux.HandleFunc("GET /api/areas/{id}", s.handleAreaDetail)
	mux.HandleFunc("PUT /api/areas/{id}/polygon", s.handleEditPolygon)
	mux.HandleFunc("PUT /api/areas/{id}/name", s.handleRenameArea)
	mux.HandleFunc("POST /api/areas/{id}/activate", s.handleActivateArea)
	mux.HandleFunc("DELETE /api/areas/{id}", s.handleRemoveArea)

	mux.HandleFunc("GET /api/link", s.handleEncodeLink)
	mux.HandleFunc("GET /api/link/decode", s.handleDecodeLink)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/status/stream", s.handleStatusStream)

	return withCORS(mux)
}

// Start begins serving on the configured address and blocks until the
// listener closes.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// withCORS allows browser clients on other origins to use the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
