// Package api exposes the read-only aggregation endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	insightsservice "github.com/devpulse-io/devpulse/app/modules/insights/application"
	"github.com/devpulse-io/devpulse/config"
)

// Server serves leaderboard, top-contributor, and profile reads. All
// endpoints are read-only; ingestion happens out of band.
type Server struct {
	insights      *insightsservice.Service
	excludedRoles []string
	logger        *slog.Logger
	httpServer    *http.Server
}

func NewServer(
	insights *insightsservice.Service,
	httpCfg config.HTTPConfig,
	excludedRoles []string,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	s := &Server{
		insights:      insights,
		excludedRoles: excludedRoles,
		logger:        logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: httpCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	router.Use(corsHandler.Handler)

	router.Get("/healthz", s.handleHealth)
	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	router.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/top-contributors", s.handleTopContributors)
		r.Get("/contributors/{username}", s.handleProfile)
	})

	s.httpServer = &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP API listening", slog.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	start, end, ok := s.window(w, r)
	if !ok {
		return
	}
	entries, err := s.insights.ComputeLeaderboard(r.Context(), start, end, s.excludedRoles)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTopContributors(w http.ResponseWriter, r *http.Request) {
	start, end, ok := s.window(w, r)
	if !ok {
		return
	}
	var slugs []string
	if raw := r.URL.Query().Get("activities"); raw != "" {
		slugs = strings.Split(raw, ",")
	}
	tops, err := s.insights.ComputeTopContributorsByActivity(r.Context(), start, end, slugs, s.excludedRoles)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tops)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := s.insights.ComputeContributorProfile(r.Context(), username)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if profile.Contributor == nil {
		writeError(w, http.StatusNotFound, "contributor not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// window parses the from/until query params. from defaults to 30 days back,
// until to now.
func (s *Server) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp, expected RFC3339")
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp, expected RFC3339")
			return time.Time{}, time.Time{}, false
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "until must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "Request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
