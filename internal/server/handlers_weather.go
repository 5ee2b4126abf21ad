package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/internal/weather"
)

type weatherSelectRequest struct {
	Location string `json:"location"`
}

func (s *Server) handleGetWeather(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.panel.Status())
}

func (s *Server) handleSelectWeather(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context()).With().Str("handler", "weather.select").Logger()

	var req weatherSelectRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	status, err := s.panel.Select(logger.WithContext(r.Context()), req.Location)
	if err != nil {
		var unknown *weather.UnknownLocationError
		if errors.As(err, &unknown) {
			respondError(w, r, err)
			return
		}
		respondProblem(w, r, statusForError(err), status.Message)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
