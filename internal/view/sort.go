package view

import "strings"

// SortKey names the field the derived view is ordered by.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByPrice    SortKey = "price"
	SortByCategory SortKey = "category"
	SortByLocation SortKey = "location"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec is the active sort key and direction.
type SortSpec struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by name, ascending.
func DefaultSort() SortSpec {
	return SortSpec{Key: SortByName, Direction: Ascending}
}

// Toggle returns the spec that results from choosing key: the same key
// flips direction, a different key starts ascending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.Key == key {
		if s.Direction == Descending {
			return SortSpec{Key: key, Direction: Ascending}
		}
		return SortSpec{Key: key, Direction: Descending}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// ParseSortKey maps user input to a SortKey. "unit" is accepted for
// location. ok is false for unknown keys.
func ParseSortKey(raw string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SortByName):
		return SortByName, true
	case string(SortByPrice):
		return SortByPrice, true
	case string(SortByCategory):
		return SortByCategory, true
	case string(SortByLocation), "unit":
		return SortByLocation, true
	default:
		return "", false
	}
}

// ParseSortSpec builds a SortSpec from user input, falling back to the
// default key and ascending order for anything unrecognised.
func ParseSortSpec(key, direction string) SortSpec {
	spec := DefaultSort()
	if k, ok := ParseSortKey(key); ok {
		spec.Key = k
	}
	if strings.EqualFold(strings.TrimSpace(direction), string(Descending)) {
		spec.Direction = Descending
	}
	return spec
}
