// Package view derives the filtered, sorted projection of the menu that
// is shown to the user.
//
// Derive is a pure function: it never mutates its input and keeps no state
// between calls. It is re-run on every change of records or criteria.
package view

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// Result is one derived view.
type Result struct {
	Records []types.MenuRecord `json:"items"`
	// AvailableCount counts visible records not explicitly marked unavailable.
	AvailableCount int `json:"availableCount"`
	// Total is the size of the unfiltered input.
	Total int      `json:"total"`
	Sort  SortSpec `json:"sort"`
}

// Derive filters records by criteria in a single pass and stable-sorts the
// survivors by spec.
func Derive(records []types.MenuRecord, criteria FilterCriteria, spec SortSpec) Result {
	// Casers and collators carry state and are not safe to share between
	// goroutines.
	folder := cases.Fold()
	fold := func(s string) string { return folder.String(s) }
	collator := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)

	p := newPredicate(criteria, fold)
	visible := make([]types.MenuRecord, 0, len(records))
	available := 0
	for _, rec := range records {
		if !p.match(rec) {
			continue
		}
		visible = append(visible, rec)
		if rec.IsAvailable() {
			available++
		}
	}

	if key, ok := ParseSortKey(string(spec.Key)); ok {
		spec.Key = key
	} else {
		spec.Key = SortByName
	}
	if spec.Direction != Descending {
		spec.Direction = Ascending
	}
	compare := comparator(spec.Key, collator)
	if spec.Direction == Descending {
		asc := compare
		compare = func(a, b types.MenuRecord) int { return asc(b, a) }
	}
	slices.SortStableFunc(visible, compare)

	return Result{
		Records:        visible,
		AvailableCount: available,
		Total:          len(records),
		Sort:           spec,
	}
}

type predicate struct {
	name         string
	category     string
	availability Availability
	min, max     float64
	hasMin       bool
	hasMax       bool
	location     string
	fold         func(string) string
}

func newPredicate(c FilterCriteria, fold func(string) string) predicate {
	p := predicate{
		name:         fold(strings.TrimSpace(c.Name)),
		availability: c.Availability,
		fold:         fold,
	}
	if !isAllSelector(c.Category) {
		p.category = strings.TrimSpace(c.Category)
	}
	if !isAllSelector(c.Location) {
		p.location = strings.TrimSpace(c.Location)
	}
	p.min, p.hasMin = parseBound(c.MinPrice)
	p.max, p.hasMax = parseBound(c.MaxPrice)
	return p
}

// match applies the filters in order and stops at the first failure.
func (p predicate) match(rec types.MenuRecord) bool {
	if p.name != "" && !strings.Contains(p.fold(rec.Name), p.name) {
		return false
	}
	if p.category != "" && rec.Category != p.category {
		return false
	}
	switch p.availability {
	case AvailabilityAvailable:
		if !rec.IsAvailable() {
			return false
		}
	case AvailabilityUnavailable:
		if rec.IsAvailable() {
			return false
		}
	}
	if p.hasMin || p.hasMax {
		if !rec.HasPrice() {
			return false
		}
		if p.hasMin && *rec.Price < p.min {
			return false
		}
		if p.hasMax && *rec.Price > p.max {
			return false
		}
	}
	if p.location != "" && rec.Unit != p.location {
		return false
	}
	return true
}

func comparator(key SortKey, collator *collate.Collator) func(a, b types.MenuRecord) int {
	text := func(field func(types.MenuRecord) string) func(a, b types.MenuRecord) int {
		return func(a, b types.MenuRecord) int {
			return collator.CompareString(field(a), field(b))
		}
	}

	switch key {
	case SortByPrice:
		return func(a, b types.MenuRecord) int {
			return cmp.Compare(sortablePrice(a), sortablePrice(b))
		}
	case SortByCategory:
		return text(func(r types.MenuRecord) string { return r.Category })
	case SortByLocation:
		return text(func(r types.MenuRecord) string { return r.Unit })
	default:
		return text(func(r types.MenuRecord) string { return r.Name })
	}
}

// sortablePrice places records without a price below every real price.
func sortablePrice(r types.MenuRecord) float64 {
	if r.Price == nil {
		return math.Inf(-1)
	}
	return *r.Price
}
