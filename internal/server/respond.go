package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/internal/form"
	"github.com/kristyson/DGK-Restaurante/internal/policy"
	"github.com/kristyson/DGK-Restaurante/internal/store"
	"github.com/kristyson/DGK-Restaurante/internal/weather"
	"github.com/kristyson/DGK-Restaurante/pkg/client"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

const problemContentType = "application/problem+json"

// requestError marks a malformed request body.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondProblem(w http.ResponseWriter, r *http.Request, status int, detail string, problems ...types.ValidationError) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		Errors:   problems,
	})
}

func respondProblemf(w http.ResponseWriter, r *http.Request, status int, format string, args ...any) {
	respondProblem(w, r, status, fmt.Sprintf(format, args...))
}

// respondError writes the problem response for err and returns the status
// it used.
func respondError(w http.ResponseWriter, r *http.Request, err error) int {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}

	var verr *form.ValidationError
	if errors.As(err, &verr) {
		respondProblem(w, r, status, "menu item is invalid", verr.Problems...)
		return status
	}
	respondProblem(w, r, status, err.Error())
	return status
}

func statusForError(err error) int {
	var unknown *weather.UnknownLocationError
	switch {
	case form.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, policy.ErrReadOnly):
		return http.StatusForbidden
	case form.IsPartialCreate(err):
		return http.StatusBadGateway
	case errors.As(err, new(*requestError)):
		return http.StatusBadRequest
	case client.IsNotFound(err), errors.Is(err, store.ErrNotFound), errors.As(err, &unknown):
		return http.StatusNotFound
	case client.IsValidation(err):
		return http.StatusBadRequest
	case client.IsDataUnavailable(err):
		return http.StatusServiceUnavailable
	case client.IsTransport(err), client.IsServer(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSONStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &requestError{err: err}
	}
	if decoder.More() {
		return &requestError{err: errors.New("request must contain exactly one JSON object")}
	}
	return nil
}
