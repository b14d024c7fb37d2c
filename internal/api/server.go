// Package api provides the HTTP server for Sahayog.
// It exposes the trust score, endorsement graph, and cluster health
// endpoints consumed by the CLI and partner dashboards.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the Sahayog HTTP API server.
type Server struct {
	scores         *ScoreAPI
	clusters       *ClusterAPI
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(scores *ScoreAPI, clusters *ClusterAPI) *Server {
	return &Server{scores: scores, clusters: clusters}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api/users/{id}", func(r chi.Router) {
		r.Get("/score", s.scores.HandleScore)
		r.Get("/score/history", s.scores.HandleScoreHistory)
		r.Post("/score/recompute", s.scores.HandleRecompute)
		r.Get("/graph", s.scores.HandleGraph)
	})

	r.Route("/api/communities/{id}", func(r chi.Router) {
		r.Get("/health", s.clusters.HandleHealth)
		r.Post("/health/recompute", s.clusters.HandleRecompute)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
