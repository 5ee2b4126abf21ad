// Package types defines the wire and domain types shared by the gateway
// client, the menu store, the view engine and the HTTP API.
//
// Conventions:
//   - JSON tags use camelCase to match the Parse object format.
//   - Request types use value fields for required data and pointer fields
//     for optional/patchable data.
//   - Validation is NOT performed in this package; the form controller
//     validates drafts before they reach the gateway.
package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// ===========================================================================
// MenuRecord
// ===========================================================================

// MenuRecord is one menu item as stored in the remote object store.
//
// Price and Available are pointers because stored data is loose: a price
// may be missing or not a number, and a missing availability flag means
// the item is available.
type MenuRecord struct {
	ID          string    `json:"objectId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Available   *bool     `json:"available,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// IsPersisted reports whether the record has been saved at least once.
func (r MenuRecord) IsPersisted() bool {
	return r.ID != ""
}

// IsAvailable reports whether the record counts as available. Only an
// explicit false makes a record unavailable.
func (r MenuRecord) IsAvailable() bool {
	return r.Available == nil || *r.Available
}

// HasPrice reports whether the record carries a numeric price.
func (r MenuRecord) HasPrice() bool {
	return r.Price != nil
}

// UnmarshalJSON decodes a Parse object. Non-numeric prices and
// non-boolean availability flags are dropped instead of failing the
// whole list.
func (r *MenuRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"objectId"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       json.RawMessage `json:"price"`
		Category    string          `json:"category"`
		Unit        string          `json:"unit"`
		Available   json.RawMessage `json:"available"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = MenuRecord{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Category:    raw.Category,
		Unit:        raw.Unit,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}

	var price float64
	if len(raw.Price) > 0 && raw.Price[0] != '"' && json.Unmarshal(raw.Price, &price) == nil && !bytes.Equal(raw.Price, []byte("null")) {
		r.Price = &price
	}

	var available bool
	if len(raw.Available) > 0 && json.Unmarshal(raw.Available, &available) == nil && !bytes.Equal(raw.Available, []byte("null")) {
		r.Available = &available
	}
	return nil
}

// MenuFields is the full field set sent when creating a record.
type MenuFields struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Available   bool    `json:"available"`
}

// MenuPatch is a partial update. Only non-nil fields are sent.
type MenuPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Available   *bool    `json:"available,omitempty"`
}

// PatchFromFields builds a patch that overwrites every field.
func PatchFromFields(f MenuFields) MenuPatch {
	return MenuPatch{
		Name:        &f.Name,
		Description: &f.Description,
		Price:       &f.Price,
		Category:    &f.Category,
		Unit:        &f.Unit,
		Available:   &f.Available,
	}
}

// ===========================================================================
// Weather
// ===========================================================================

// Location is a facility with fixed coordinates. The key doubles as the
// unit tag on menu records.
type Location struct {
	Key       string  `json:"key" yaml:"key" validate:"required"`
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// WeatherSnapshot is the current-conditions reading for one location.
type WeatherSnapshot struct {
	Location    string    `json:"location,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"`
	WindSpeed   float64   `json:"windspeed"`
	WeatherCode int       `json:"weathercode"`
	Time        string    `json:"time"`
	ObservedAt  time.Time `json:"observedAt,omitzero"`
}

// ===========================================================================
// Errors
// ===========================================================================

// ProblemDetail is an RFC 9457 problem response.
type ProblemDetail struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
