// Package dashboard serves a small local web UI over the session's status
// hub: live stats, the rolling log, and past-session history.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/ifung-0/lightsail-auto/pkg/history"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
	"github.com/ifung-0/lightsail-auto/pkg/status"
)

//go:embed assets
var assets embed.FS

// Server exposes session status over HTTP.
type Server struct {
	hub    *status.Hub
	store  *history.Store
	logger *logging.Logger
	http   *http.Server
}

// New creates a Server. store may be nil when history is disabled; logger
// may be nil.
func New(hub *status.Hub, store *history.Store, logger *logging.Logger) *Server {
	return &Server{hub: hub, store: store, logger: logger}
}

// Handler builds the route tree. Split out from Start for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/logs", s.handleLogs)
	r.Get("/api/history", s.handleHistory)
	return r
}

// Start serves the dashboard on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.logger != nil {
		s.logger.Infof("dashboard listening on http://%s", addr)
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.ReadFile("assets/index.html")
	if err != nil {
		http.Error(w, "dashboard page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.hub.Snapshot())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := s.hub.Entries()
	if entries == nil {
		entries = []status.Entry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, []history.Session{})
		return
	}
	sessions, err := s.store.List(r.Context(), 20)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("history query failed: %v", err)
		}
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []history.Session{}
	}
	writeJSON(w, sessions)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
