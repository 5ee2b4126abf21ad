package view

import (
	"math"
	"strconv"
	"strings"
)

// Selector values shared by the category, availability and location filters.
const (
	All = "all"
)

// Availability selects records by their available flag.
type Availability string

const (
	AvailabilityAll         Availability = "all"
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// ParseAvailability maps a selector, including the labels used by the
// Portuguese UI, to an Availability. Unknown values select everything.
func ParseAvailability(raw string) Availability {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available", "disponivel", "disponível":
		return AvailabilityAvailable
	case "unavailable", "indisponivel", "indisponível":
		return AvailabilityUnavailable
	default:
		return AvailabilityAll
	}
}

// FilterCriteria is the set of conjunctive filters applied by Derive. An
// empty field imposes no constraint.
type FilterCriteria struct {
	// Name is a case-insensitive substring of the record name.
	Name string
	// Category is "all" or an exact category.
	Category string
	// Availability selects available, unavailable or all records.
	Availability Availability
	// MinPrice and MaxPrice are raw user input. Blank or non-numeric bounds
	// are ignored.
	MinPrice string
	MaxPrice string
	// Location is "all" or an exact unit tag.
	Location string
}

// isAllSelector reports whether a category or location selector means "no
// constraint".
func isAllSelector(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", All, "todas", "todos", "todas as unidades":
		return true
	default:
		return false
	}
}

// parseBound parses a price bound. ok is false for blank, non-numeric and
// non-finite input.
func parseBound(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
