// Package web exposes the read-only status API: per-date schedule
// state, the sync log, manual refresh, and calendar export.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tutorcal/internal/calendar"
	"tutorcal/internal/config"
	appLog "tutorcal/internal/log"
	"tutorcal/internal/sched"
)

// Server serves the HTTP status API.
type Server struct {
	cfg      *config.Config
	coord    *sched.Coordinator
	exporter *calendar.Exporter
	mux      *http.ServeMux
}

func NewServer(cfg *config.Config, coord *sched.Coordinator, exporter *calendar.Exporter) *Server {
	s := &Server{
		cfg:      cfg,
		coord:    coord,
		exporter: exporter,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/schedules", s.handleSchedules)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("DELETE /api/logs", s.handleClearLogs)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/export", s.handleExport)
}

// Handler returns the server's http.Handler, wrapped with basic auth
// when credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuth != nil &&
		s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware protects all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tutorcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.coord.CurrentDate()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "invalid date, want yyyy-MM-dd", http.StatusBadRequest)
		return
	}

	state, _ := s.coord.Snapshot(date)
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"state": state,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.SyncLogs())
}

func (s *Server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	s.coord.ClearLogs()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	go s.coord.Refresh(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || date == "" {
		http.Error(w, "want id and date query params", http.StatusBadRequest)
		return
	}

	schedules, ok := s.coord.Schedules(date)
	if !ok {
		http.Error(w, "no schedules loaded for date", http.StatusNotFound)
		return
	}
	for _, sched := range schedules {
		if sched.ID != id {
			continue
		}
		path, err := s.exporter.Export(sched, date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": path})
		return
	}
	http.Error(w, "schedule not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("write response failed", err)
	}
}
