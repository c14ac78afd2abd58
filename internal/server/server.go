// Package server exposes the scrape triggers, admin scrape dashboard and
// search endpoints over HTTP.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/digisapp/luxapts/internal/batch"
	"github.com/digisapp/luxapts/internal/logger"
	"github.com/digisapp/luxapts/internal/search"
	"github.com/digisapp/luxapts/internal/store"
)

// Server wires the HTTP surface. Cron endpoints are protected by a shared
// bearer secret; everything else is expected to sit behind an upstream
// gateway.
type Server struct {
	store      store.Store
	runner     *batch.Runner
	search     *search.Service
	cronSecret string
	mux        *http.ServeMux
}

// New creates a Server and registers its routes.
func New(st store.Store, runner *batch.Runner, searchSvc *search.Service, cronSecret string) *Server {
	s := &Server{
		store:      st,
		runner:     runner,
		search:     searchSvc,
		cronSecret: cronSecret,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /cron/scrape-units", s.requireCronSecret(s.handleCronScrapeUnits))
	s.mux.HandleFunc("GET /cron/scrape-amenities", s.requireCronSecret(s.handleCronScrapeAmenities))
	s.mux.HandleFunc("GET /admin/scrape", s.handleAdminScrapeStatus)
	s.mux.HandleFunc("POST /admin/scrape", s.handleAdminScrapeAction)
	s.mux.HandleFunc("POST /scrape/building/{id}", s.handleScrapeBuilding)
	s.mux.HandleFunc("POST /search", s.handleSearch)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// requireCronSecret rejects requests whose Authorization header does not
// carry the configured bearer secret. An empty configured secret disables
// the check, matching local development.
func (s *Server) requireCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cronSecret != "" && r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
