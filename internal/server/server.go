// Package server exposes a read-only health and stats surface for the relay.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errx "github.com/procurebot/relay/internal/core/error"
	"github.com/procurebot/relay/internal/history"
	"github.com/procurebot/relay/internal/relay/router"
	logx "github.com/procurebot/relay/pkg/logger"
)

type Config struct {
	Addr string `envconfig:"STATUS_ADDR"`
}

func (c Config) Enabled() bool { return c.Addr != "" }

// LoopStatus is the part of the router the server reports on.
type LoopStatus interface {
	Ready() bool
	Stats() router.Stats
}

// UserCounter reports how many users have live state.
type UserCounter interface {
	Len(ctx context.Context) (int, error)
}

// Registry is the user registry lookup. It is optional.
type Registry interface {
	Count(ctx context.Context) (int64, error)
	FindUser(ctx context.Context, userID string) (*history.UserDoc, error)
}

type Server struct {
	cfg        Config
	loop       LoopStatus
	users      UserCounter
	registry   Registry
	router     chi.Router
	httpServer *http.Server
}

// New builds the server. users and registry may be nil.
func New(cfg Config, loop LoopStatus, users UserCounter, registry Registry) *Server {
	s := &Server{cfg: cfg, loop: loop, users: users, registry: registry}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/stats", s.handleStats)
	r.Get("/users/{userID}", s.handleUser)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.loop.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not connected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statsResponse struct {
	router.Stats
	Users      int    `json:"users"`
	Registered *int64 `json:"registered_users,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Stats: s.loop.Stats()}
	if s.users != nil {
		n, err := s.users.Len(r.Context())
		if err != nil {
			logx.Warn().Err(err).Msg("failed to count users for stats")
			writeError(w, err, "user count unavailable")
			return
		}
		resp.Users = n
	}
	if s.registry != nil {
		n, err := s.registry.Count(r.Context())
		if err != nil {
			logx.Warn().Err(err).Msg("failed to count registered users")
			writeError(w, err, "registry unavailable")
			return
		}
		resp.Registered = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user registry disabled"})
		return
	}
	userID := chi.URLParam(r, "userID")
	doc, err := s.registry.FindUser(r.Context(), userID)
	if err != nil {
		logx.Warn().Err(err).Str("user", userID).Msg("failed to look up user")
		writeError(w, err, "registry unavailable")
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logx.Info().Str("addr", s.cfg.Addr).Msg("status server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeError(w http.ResponseWriter, err error, message string) {
	writeJSON(w, errx.StatusOf(err), map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
