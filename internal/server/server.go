// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/connection"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// ShutdownTimeout bounds graceful shutdown once the context is done.
	ShutdownTimeout = 2 * time.Second

	// Health status values.
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusOffline  = "offline"
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures the status listener.
type Options struct {
	Addr    string
	Version string

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Snapshot returns the current conversation state for /health.
	Snapshot func() chatsync.Snapshot
}

// Server is the status listener.
type Server struct {
	opts    Options
	router  *http.ServeMux
	started time.Time
}

// New creates a Server. It does not listen until Run.
func New(opts Options) *Server {
	s := &Server{
		opts:    opts,
		router:  http.NewServeMux(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", getOnly(s.opts.Metrics))
	}
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		NoStoreMiddleware(),
		LoggingMiddleware(),
	)(s.router)
}

// Run listens on Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.opts.Addr).Msg("STATUS SERVER LISTENING")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("STATUS SERVER STOPPED")
	return nil
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Connection    string `json:"connection"`
	Quality       string `json:"quality"`
	LatencyMs     int64  `json:"latency_ms"`
	Messages      int    `json:"messages"`
	Streaming     bool   `json:"streaming"`
	Composing     bool   `json:"composing"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// healthStatus maps connection state to ok, degraded or offline.
func healthStatus(c connection.Snapshot) string {
	switch {
	case c.State != connection.StateConnected:
		return StatusOffline
	case c.Degraded || c.Quality == connection.QualityPoor:
		return StatusDegraded
	default:
		return StatusOK
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}

	var snap chatsync.Snapshot
	if s.opts.Snapshot != nil {
		snap = s.opts.Snapshot()
	}

	health := HealthResponse{
		Status:        healthStatus(snap.Connection),
		Version:       s.opts.Version,
		Connection:    snap.Connection.State.String(),
		Quality:       string(snap.Connection.Quality),
		LatencyMs:     snap.Connection.LatencyMs,
		Messages:      len(snap.Messages),
		Streaming:     snap.CurrentResponseID != "",
		Composing:     snap.Composing,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	status := http.StatusOK
	if health.Status == StatusOffline {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// ============================================================================
// HELPERS
// ============================================================================

func getOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", "GET, HEAD")
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
