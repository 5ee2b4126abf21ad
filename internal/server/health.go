package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
}

func registerHealthRoutes(r chi.Router, s *Server) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			respondProblemf(w, r, http.StatusServiceUnavailable, "not ready: %v", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, versionResponse{
			Version:   s.version,
			Commit:    s.commit,
			BuildDate: s.buildDate,
		})
	})
}
