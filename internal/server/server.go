// Package server provides the menu HTTP API.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/kristyson/DGK-Restaurante/internal/audit"
	"github.com/kristyson/DGK-Restaurante/internal/policy"
	"github.com/kristyson/DGK-Restaurante/internal/weather"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// MenuStore is the subset of the record store the server depends on.
// *store.Store satisfies it.
type MenuStore interface {
	Refresh(ctx context.Context) error
	Records() []types.MenuRecord
	Get(id string) (types.MenuRecord, error)
	RefreshedAt() time.Time
	Ping(ctx context.Context) error
	Create(ctx context.Context, fields types.MenuFields) (string, error)
	Update(ctx context.Context, id string, patch types.MenuPatch) error
	Delete(ctx context.Context, id string) error
	ToggleAvailability(ctx context.Context, id string) (bool, error)
	Categories(defaults []string) []string
}

// WeatherPanel is the weather controller the server depends on.
// *weather.Panel satisfies it.
type WeatherPanel interface {
	Select(ctx context.Context, key string) (weather.Status, error)
	Status() weather.Status
	Locations() []types.Location
}

// Server wraps HTTP routes and dependencies.
type Server struct {
	store           MenuStore
	panel           WeatherPanel
	guard           *policy.Guard
	audit           *audit.Logger
	logger          zerolog.Logger
	categories      []string
	requireCategory bool
	version         string
	commit          string
	buildDate       string
	router          chi.Router
}

// Option configures server construction.
type Option func(*Server)

// WithLogger sets the request and audit logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGuard sets the mutation policy. The default allows writes.
func WithGuard(guard *policy.Guard) Option {
	return func(s *Server) {
		s.guard = guard
	}
}

// WithAuditLogger sets the mutation audit logger.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Server) {
		s.audit = l
	}
}

// WithCategories sets the default category list.
func WithCategories(categories []string) Option {
	return func(s *Server) {
		s.categories = slices.Clone(categories)
	}
}

// WithRequireCategory makes the category mandatory on submitted items.
func WithRequireCategory(required bool) Option {
	return func(s *Server) {
		s.requireCategory = required
	}
}

// WithBuildInfo sets the values reported by /version.
func WithBuildInfo(version, commit, buildDate string) Option {
	return func(s *Server) {
		s.version = version
		s.commit = commit
		s.buildDate = buildDate
	}
}

// New constructs a menu API server.
func New(st MenuStore, panel WeatherPanel, opts ...Option) *Server {
	s := &Server{
		store:   st,
		panel:   panel,
		logger:  zerolog.Nop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = policy.ReadWrite()
	}
	if s.audit == nil {
		s.audit = audit.NewLogger(s.logger)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(1 << 20))

	registerHealthRoutes(r, s)

	r.Route("/menu/v1", func(r chi.Router) {
		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleCreateItem)
		r.Put("/items/{id}", s.handleUpdateItem)
		r.Delete("/items/{id}", s.handleDeleteItem)
		r.Post("/items/{id}/availability", s.handleToggleAvailability)
		r.Post("/refresh", s.handleRefresh)

		r.Get("/categories", s.handleListCategories)
		r.Get("/locations", s.handleListLocations)

		r.Get("/weather", s.handleGetWeather)
		r.Put("/weather", s.handleSelectWeather)
	})

	return r
}

// requestIDLogger tags the request logger with the chi request id so that
// gateway and handler logs can be correlated.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request completed")
}
