// Package store holds the canonical in-memory copy of the menu.
//
// The list is only ever replaced wholesale from the remote object store:
// every mutation is sent to the gateway and followed by a full refresh.
// Nothing is patched locally.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// ErrNotFound is returned when a record id is not present in the local copy.
var ErrNotFound = errors.New("not found")

// ErrNotRefreshed is reported by Ping before the first successful refresh.
var ErrNotRefreshed = errors.New("menu has not been loaded yet")

// RefreshError reports a failed reload of the menu. Returned from a
// mutation it means the remote change was applied and only the local copy
// is stale.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "refreshing menu: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsRefresh reports whether err is a failed reload.
func IsRefresh(err error) bool {
	var target *RefreshError
	return errors.As(err, &target)
}

// Gateway is the subset of the remote gateway the store depends on.
type Gateway interface {
	List(ctx context.Context, class string) ([]types.MenuRecord, error)
	Create(ctx context.Context, class string, fields types.MenuFields) (string, error)
	Update(ctx context.Context, class, id string, patch types.MenuPatch) error
	Delete(ctx context.Context, class, id string) error
}

// Store owns the menu record list.
type Store struct {
	gateway Gateway
	class   string
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	records     []types.MenuRecord
	refreshedAt time.Time
	lastErr     error
}

// Option configures store construction.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store backed by the given gateway.
func New(gateway Gateway, class string, opts ...Option) *Store {
	s := &Store{
		gateway: gateway,
		class:   class,
		logger:  zerolog.Nop(),
		now:     time.Now,
		records: []types.MenuRecord{},
		lastErr: ErrNotRefreshed,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "store").Str("class", class).Logger()
	return s
}

// Refresh replaces the whole list with the current remote contents. On
// failure the previous list is kept.
func (s *Store) Refresh(ctx context.Context) error {
	records, err := s.gateway.List(ctx, s.class)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.logger.Warn().Err(err).Msg("menu refresh failed")
		return &RefreshError{Err: err}
	}

	s.records = slices.Clone(records)
	if s.records == nil {
		s.records = []types.MenuRecord{}
	}
	s.refreshedAt = s.now()
	s.lastErr = nil
	s.logger.Debug().Int("records", len(records)).Msg("menu refreshed")
	return nil
}

// Records returns a copy of the current list in fetch order.
func (s *Store) Records() []types.MenuRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Get returns the local copy of one record.
func (s *Store) Get(id string) (types.MenuRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return types.MenuRecord{}, fmt.Errorf("menu item %q: %w", id, ErrNotFound)
}

// RefreshedAt returns the time of the last successful refresh.
func (s *Store) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Ping reports the outcome of the last refresh.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Create stores a new record remotely, then refreshes. When only the
// refresh fails the new id is returned together with a *RefreshError.
func (s *Store) Create(ctx context.Context, fields types.MenuFields) (string, error) {
	id, err := s.gateway.Create(ctx, s.class, fields)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("id", id).Str("unit", fields.Unit).Msg("menu item created")
	if err := s.Refresh(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// Update sends a partial update remotely, then refreshes.
func (s *Store) Update(ctx context.Context, id string, patch types.MenuPatch) error {
	if err := s.gateway.Update(ctx, s.class, id, patch); err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("menu item updated")
	return s.Refresh(ctx)
}

// Delete removes a record remotely, then refreshes.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, s.class, id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("menu item deleted")
	return s.Refresh(ctx)
}

// ToggleAvailability flips the availability of a record as currently held
// locally and refreshes. It returns the value that was sent, also when only
// the refresh failed.
func (s *Store) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(id)
	if err != nil {
		return false, err
	}
	next := !rec.IsAvailable()
	if err := s.Update(ctx, id, types.MenuPatch{Available: &next}); err != nil {
		if IsRefresh(err) {
			return next, err
		}
		return false, err
	}
	return next, nil
}

// Categories merges the given defaults with the categories present in the
// current list. Defaults keep their order; ad-hoc categories follow sorted.
func (s *Store) Categories(defaults []string) []string {
	seen := make(map[string]struct{}, len(defaults))
	out := make([]string, 0, len(defaults))
	for _, c := range defaults {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	var extra []string
	for _, rec := range s.Records() {
		trimmed := strings.TrimSpace(rec.Category)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		extra = append(extra, trimmed)
	}
	slices.Sort(extra)
	return append(out, extra...)
}
