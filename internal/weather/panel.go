// Package weather tracks the selected location and the outcome of its most
// recent forecast lookup.
package weather

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// AllLocations selects every location. It never triggers a lookup.
const AllLocations = "all"

// AllLocationsLabel is the display label accepted as an alias of AllLocations.
const AllLocationsLabel = "Todas as unidades"

// Advisory is shown instead of a forecast while every location is selected.
const Advisory = "Select a single location to see the current weather."

// State is the panel state.
type State string

const (
	StateAdvisory State = "advisory"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Forecaster fetches current conditions. *client.Client satisfies it.
type Forecaster interface {
	FetchForecast(ctx context.Context, latitude, longitude float64) (types.WeatherSnapshot, error)
}

// Status is the last outcome shown by the panel.
type Status struct {
	Location string                 `json:"location"`
	State    State                  `json:"state"`
	Snapshot *types.WeatherSnapshot `json:"snapshot,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// UnknownLocationError reports a selection with no coordinates.
type UnknownLocationError struct {
	Key string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location %q", e.Key)
}

// Panel owns the weather selection. It is safe for concurrent use; when
// lookups overlap, whichever finishes last is kept.
type Panel struct {
	forecaster Forecaster
	locations  []types.Location
	logger     zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// Option configures a Panel.
type Option func(*Panel)

// WithLogger sets the panel logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Panel) {
		p.logger = logger
	}
}

// NewPanel creates a panel over a fixed coordinate table. The panel starts
// with every location selected.
func NewPanel(forecaster Forecaster, locations []types.Location, opts ...Option) *Panel {
	p := &Panel{
		forecaster: forecaster,
		locations:  slices.Clone(locations),
		logger:     zerolog.Nop(),
		status:     advisory(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "weather").Logger()
	return p
}

// Locations returns the coordinate table in configured order.
func (p *Panel) Locations() []types.Location {
	return slices.Clone(p.locations)
}

// Resolve returns the coordinates for key.
func (p *Panel) Resolve(key string) (types.Location, error) {
	for _, loc := range p.locations {
		if loc.Key == key {
			return loc, nil
		}
	}
	return types.Location{}, &UnknownLocationError{Key: key}
}

// Status returns the last outcome.
func (p *Panel) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Select changes the selection and looks the forecast up again. Every call
// issues a fresh request. A failed lookup is stored as a message and also
// returned, including an unknown key.
func (p *Panel) Select(ctx context.Context, key string) (Status, error) {
	key = strings.TrimSpace(key)
	if IsAllLocations(key) {
		return p.set(advisory()), nil
	}

	loc, err := p.Resolve(key)
	if err != nil {
		p.logger.Warn().Err(err).Str("location", key).Msg("weather location not configured")
		return p.set(Status{Location: key, State: StateFailed, Message: err.Error()}), err
	}

	snap, err := p.forecaster.FetchForecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		p.logger.Warn().Err(err).Str("location", key).Msg("weather lookup failed")
		return p.set(Status{
			Location: key,
			State:    StateFailed,
			Message:  "weather lookup failed: " + err.Error(),
		}), err
	}

	snap.Location = key
	p.logger.Debug().
		Str("location", key).
		Float64("temperature", snap.Temperature).
		Msg("weather updated")
	return p.set(Status{Location: key, State: StateReady, Snapshot: &snap}), nil
}

// IsAllLocations reports whether key selects every location.
func IsAllLocations(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.EqualFold(key, AllLocations) || strings.EqualFold(key, AllLocationsLabel)
}

func (p *Panel) set(s Status) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
	return s
}

func advisory() Status {
	return Status{Location: AllLocations, State: StateAdvisory, Message: Advisory}
}
