// Package server exposes the memory store over HTTP: POST /memory/store,
// POST /memory/search, and GET /health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evermem/evermem/core"
	"github.com/evermem/evermem/memory"
)

// Server wires the HTTP API over a memory.Store.
type Server struct {
	store      *memory.Store
	logger     core.Logger
	mux        *http.ServeMux
	httpServer *http.Server
	startedAt  time.Time
}

// New creates a Server listening on the configured port (not yet started).
func New(store *memory.Store, cfg core.HTTPConfig, logger core.Logger) *Server {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	mux := http.NewServeMux()
	s := &Server{
		store:     store,
		logger:    logger,
		mux:       mux,
		startedAt: time.Now(),
	}

	mux.HandleFunc("/memory/store", s.handleStore)
	mux.HandleFunc("/memory/search", s.handleSearch)
	mux.HandleFunc("/health", s.handleHealth)

	handler := loggingMiddleware(logger)(mux)
	handler = otelhttp.NewHandler(handler, "evermem")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the root handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type storeRequest struct {
	Namespace string                 `json:"namespace"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type searchRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
}

type searchResult struct {
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Namespace == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "namespace and content are required")
		return
	}

	if err := s.store.Store(r.Context(), req.Namespace, req.Content, req.Metadata); err != nil {
		writeError(w, http.StatusServiceUnavailable, "memory backend unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Namespace == "" {
		writeError(w, http.StatusBadRequest, "namespace is required")
		return
	}

	entries, err := s.store.Search(r.Context(), req.Namespace, req.Query, req.Limit)
	if err != nil {
		// Search degrades rather than erroring; treat a hard failure as empty
		s.logger.Error("Search failed", map[string]interface{}{
			"namespace": req.Namespace,
			"error":     err,
		})
		entries = nil
	}

	results := make([]searchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, searchResult{
			Content:   e.Content,
			Metadata:  e.Metadata,
			Timestamp: e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health := s.store.Health(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":               health.Status,
		"searchIndexAvailable": health.SearchIndexAvailable,
		"uptime_seconds":       time.Since(s.startedAt).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}
