package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/internal/audit"
	"github.com/kristyson/DGK-Restaurante/internal/form"
	"github.com/kristyson/DGK-Restaurante/internal/store"
	"github.com/kristyson/DGK-Restaurante/internal/view"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

type itemsResponse struct {
	view.Result
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
}

type toggleResponse struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
	Warning   string `json:"warning,omitempty"`
}

type refreshResponse struct {
	Total       int       `json:"total"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// itemRequest carries the fields of a create or update. Absent fields keep
// the draft's current value.
type itemRequest struct {
	Name              *string     `json:"name"`
	Description       *string     `json:"description"`
	Price             *priceInput `json:"price"`
	Category          *string     `json:"category"`
	Unit              *string     `json:"unit"`
	Available         *bool       `json:"available"`
	ApplyAllLocations bool        `json:"applyAllLocations"`
}

// priceInput accepts a price either as a JSON number or as the raw text of
// a form field. It is validated by the form controller.
type priceInput string

func (p *priceInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*p = priceInput(s)
		return nil
	}
	*p = priceInput(trimmed)
	return nil
}

func (req itemRequest) apply(d *form.Draft) {
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Price != nil {
		d.Price = string(*req.Price)
	}
	if req.Category != nil {
		d.Category = *req.Category
	}
	if req.Unit != nil {
		d.Unit = *req.Unit
	}
	if req.Available != nil {
		d.Available = *req.Available
	}
	d.ApplyAllLocations = req.ApplyAllLocations
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := view.FilterCriteria{
		Name:         q.Get("name"),
		Category:     q.Get("category"),
		Availability: view.ParseAvailability(q.Get("availability")),
		MinPrice:     q.Get("minPrice"),
		MaxPrice:     q.Get("maxPrice"),
		Location:     q.Get("location"),
	}
	spec := view.ParseSortSpec(q.Get("sort"), q.Get("dir"))
	if key, ok := view.ParseSortKey(q.Get("toggle")); ok {
		spec = spec.Toggle(key)
	}

	resp := itemsResponse{Result: view.Derive(s.store.Records(), criteria, spec)}
	if at := s.store.RefreshedAt(); !at.IsZero() {
		resp.RefreshedAt = &at
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "menu.create", func(ctx context.Context, event *audit.MutationCompletion) (int, any, error) {
		var req itemRequest
		if err := decodeJSONStrict(r, &req); err != nil {
			return 0, nil, err
		}
		if req.ApplyAllLocations {
			event.Locations = len(s.panel.Locations())
		}

		ctrl := s.newController(ctx)
		ctrl.UpdateDraft(req.apply)
		res, err := ctrl.Submit(ctx)
		event.RecordIDs = res.IDs
		event.ErrorDetail = res.Warning
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, res, nil
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	s.mutate(w, r, "menu.update", func(ctx context.Context, event *audit.MutationCompletion) (int, any, error) {
		event.RecordIDs = []string{id}
		var req itemRequest
		if err := decodeJSONStrict(r, &req); err != nil {
			return 0, nil, err
		}
		rec, err := s.store.Get(id)
		if err != nil {
			return 0, nil, err
		}

		ctrl := s.newController(ctx)
		ctrl.StartEdit(rec)
		ctrl.UpdateDraft(req.apply)
		res, err := ctrl.Submit(ctx)
		if err != nil {
			return 0, nil, err
		}
		event.ErrorDetail = res.Warning
		return http.StatusOK, res, nil
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	s.mutate(w, r, "menu.delete", func(ctx context.Context, event *audit.MutationCompletion) (int, any, error) {
		event.RecordIDs = []string{id}
		if err := s.store.Delete(ctx, id); err != nil {
			if !store.IsRefresh(err) {
				return 0, nil, err
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("menu item deleted but the menu was not reloaded")
			event.ErrorDetail = err.Error()
		}
		return http.StatusNoContent, nil, nil
	})
}

func (s *Server) handleToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	s.mutate(w, r, "menu.toggle_availability", func(ctx context.Context, event *audit.MutationCompletion) (int, any, error) {
		event.RecordIDs = []string{id}
		resp := toggleResponse{ID: id}
		available, err := s.store.ToggleAvailability(ctx, id)
		if err != nil {
			if !store.IsRefresh(err) {
				return 0, nil, err
			}
			resp.Warning = "availability changed but the menu could not be reloaded: " + err.Error()
			event.ErrorDetail = resp.Warning
		}
		resp.Available = available
		return http.StatusOK, resp, nil
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Refresh(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, refreshResponse{
		Total:       len(s.store.Records()),
		RefreshedAt: s.store.RefreshedAt(),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"categories": s.store.Categories(s.categories),
	})
}

func (s *Server) handleListLocations(w http.ResponseWriter, _ *http.Request) {
	locations := s.panel.Locations()
	keys := make([]string, 0, len(locations)+1)
	keys = append(keys, view.All)
	for _, loc := range locations {
		keys = append(keys, loc.Key)
	}
	respondJSON(w, http.StatusOK, map[string][]string{"locations": keys})
}

// newController builds a form controller for one request. Drafts are not
// shared between requests.
func (s *Server) newController(ctx context.Context) *form.Controller {
	return form.NewController(s.store, form.Options{
		Locations:       locationKeys(s.panel.Locations()),
		RequireCategory: s.requireCategory,
		Logger:          *zerolog.Ctx(ctx),
	})
}

// mutate runs fn behind the write policy and records one audit entry for
// the outcome.
func (s *Server) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, event *audit.MutationCompletion) (int, any, error),
) {
	started := time.Now()
	logger := zerolog.Ctx(r.Context()).With().Str("handler", op).Logger()
	ctx := logger.WithContext(r.Context())

	event := audit.MutationCompletion{
		RequestID: middleware.GetReqID(ctx),
		Operation: op,
		Mode:      s.guard.Mode(),
		Result:    "error",
	}
	defer func() {
		event.Duration = time.Since(started)
		s.audit.Complete(event)
	}()

	if err := s.guard.AuthorizeMutation(op); err != nil {
		event.ErrorDetail = err.Error()
		event.Status = respondError(w, r, err)
		return
	}

	status, payload, err := fn(ctx, &event)
	if err != nil {
		logger.Warn().Err(err).Msg("mutation failed")
		event.ErrorDetail = err.Error()
		event.Status = respondError(w, r, err)
		return
	}

	event.Result = "success"
	event.Status = status
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	respondJSON(w, status, payload)
}

func locationKeys(locations []types.Location) []string {
	keys := make([]string, len(locations))
	for i, loc := range locations {
		keys[i] = loc.Key
	}
	return keys
}
