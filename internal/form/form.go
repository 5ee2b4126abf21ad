// Package form implements the create/edit controller for menu items.
//
// A Controller holds exactly one draft and is either Creating (no id) or
// Editing (id of an existing record). Submit validates the draft locally
// before any network call and, on success, returns to Creating with a
// fresh draft. A Controller is not safe for concurrent use.
package form

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/kristyson/DGK-Restaurante/internal/store"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// Mode is the controller state.
type Mode string

const (
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// Mutator persists drafts. *store.Store satisfies it. A create that
// returns an id was applied even when an error comes with it; an error
// matching store.IsRefresh means only the reload after the write failed.
type Mutator interface {
	Create(ctx context.Context, fields types.MenuFields) (string, error)
	Update(ctx context.Context, id string, patch types.MenuPatch) error
}

// Draft is the in-progress record as typed by the user. Price is kept as
// raw text until submit.
type Draft struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Price             string `json:"price"`
	Category          string `json:"category"`
	Unit              string `json:"unit"`
	Available         bool   `json:"available"`
	ApplyAllLocations bool   `json:"applyAllLocations"`
}

// Options configures a Controller.
type Options struct {
	// Locations are the known unit values, in fan-out order.
	Locations []string
	// DefaultUnit preselects a unit on new drafts. Defaults to the first
	// location.
	DefaultUnit string
	// RequireCategory makes the category mandatory.
	RequireCategory bool
	Logger          zerolog.Logger
}

// Result describes a successful submit. Warning is set when the write went
// through but the menu could not be reloaded afterwards.
type Result struct {
	Mode    Mode     `json:"mode"`
	IDs     []string `json:"ids"`
	Message string   `json:"message"`
	Warning string   `json:"warning,omitempty"`
}

// Controller tracks one draft and dispatches it on submit.
type Controller struct {
	mutator  Mutator
	opts     Options
	validate *validator.Validate
	logger   zerolog.Logger

	mode  Mode
	draft Draft
}

// NewController creates a controller in the Creating state.
func NewController(m Mutator, opts Options) *Controller {
	opts.Locations = slices.Clone(opts.Locations)
	if opts.DefaultUnit == "" && len(opts.Locations) > 0 {
		opts.DefaultUnit = opts.Locations[0]
	}
	c := &Controller{
		mutator:  m,
		opts:     opts,
		validate: validator.New(),
		logger:   opts.Logger.With().Str("component", "form").Logger(),
	}
	c.reset()
	return c
}

// Mode returns the current state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() Draft {
	return c.draft
}

// StartEdit loads rec into the draft and switches to Editing.
func (c *Controller) StartEdit(rec types.MenuRecord) {
	price := ""
	if rec.Price != nil {
		price = strconv.FormatFloat(*rec.Price, 'f', -1, 64)
	}
	c.mode = ModeEditing
	c.draft = Draft{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Price:       price,
		Category:    rec.Category,
		Unit:        rec.Unit,
		Available:   rec.IsAvailable(),
	}
}

// Cancel discards the draft and returns to Creating.
func (c *Controller) Cancel() {
	c.reset()
}

// UpdateDraft applies fn to the draft. The draft id cannot be changed this
// way, and the apply-to-all flag only has meaning while creating.
func (c *Controller) UpdateDraft(fn func(d *Draft)) {
	id := c.draft.ID
	fn(&c.draft)
	c.draft.ID = id
	if c.mode == ModeEditing {
		c.draft.ApplyAllLocations = false
	}
}

// Submit validates the draft and dispatches a create or an update. A
// validation failure returns *ValidationError without any network call and
// leaves the state untouched.
func (c *Controller) Submit(ctx context.Context) (Result, error) {
	fields, err := c.validateDraft()
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch {
	case c.mode == ModeEditing:
		res, err = c.update(ctx, fields)
	case c.draft.ApplyAllLocations:
		res, err = c.createEverywhere(ctx, fields)
	default:
		res, err = c.create(ctx, fields)
	}
	if err != nil {
		return res, err
	}

	c.reset()
	return res, nil
}

func (c *Controller) reset() {
	c.mode = ModeCreating
	c.draft = Draft{
		Available: true,
		Unit:      c.opts.DefaultUnit,
	}
}

func (c *Controller) create(ctx context.Context, fields types.MenuFields) (Result, error) {
	id, err := c.mutator.Create(ctx, fields)
	if id == "" {
		if err == nil {
			err = errors.New("no id returned")
		}
		return Result{Mode: ModeCreating}, fmt.Errorf("creating menu item: %w", err)
	}
	res := Result{Mode: ModeCreating, IDs: []string{id}, Message: "menu item created"}
	if err != nil {
		res.Warning = c.reloadWarning(err)
	}
	return res, nil
}

func (c *Controller) update(ctx context.Context, fields types.MenuFields) (Result, error) {
	id := c.draft.ID
	res := Result{Mode: ModeEditing, IDs: []string{id}, Message: "menu item updated"}
	if err := c.mutator.Update(ctx, id, types.PatchFromFields(fields)); err != nil {
		if !store.IsRefresh(err) {
			return Result{Mode: ModeEditing}, fmt.Errorf("updating menu item %q: %w", id, err)
		}
		res.Warning = c.reloadWarning(err)
	}
	return res, nil
}

func (c *Controller) reloadWarning(err error) string {
	c.logger.Warn().Err(err).Msg("menu item saved but the menu was not reloaded")
	return "menu item saved but the menu could not be reloaded: " + err.Error()
}

// createEverywhere issues one create per known location, in order, waiting
// for each before the next. Failures do not stop the sequence and nothing
// already created is rolled back.
func (c *Controller) createEverywhere(ctx context.Context, fields types.MenuFields) (Result, error) {
	var failures *multierror.Error
	var reloadErr error
	ids := make([]string, 0, len(c.opts.Locations))

	for _, loc := range c.opts.Locations {
		f := fields
		f.Unit = loc
		id, err := c.mutator.Create(ctx, f)
		if id == "" {
			if err == nil {
				err = errors.New("no id returned")
			}
			c.logger.Warn().Err(err).Str("unit", loc).Msg("create for location failed")
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", loc, err))
			continue
		}
		ids = append(ids, id)
		reloadErr = err
	}

	res := Result{Mode: ModeCreating, IDs: ids}
	if reloadErr != nil {
		res.Warning = c.reloadWarning(reloadErr)
	}
	if err := failures.ErrorOrNil(); err != nil {
		return res, &PartialCreateError{
			Created: len(ids),
			Failed:  len(failures.Errors),
			Total:   len(c.opts.Locations),
			Err:     err,
		}
	}
	res.Message = fmt.Sprintf("menu item created in %d locations", len(ids))
	return res, nil
}

type submission struct {
	Name            string  `validate:"required"`
	Price           float64 `validate:"gte=0"`
	Category        string  `validate:"required_if=RequireCategory true"`
	Unit            string  `validate:"required_unless=ApplyAll true"`
	RequireCategory bool
	ApplyAll        bool
}

var fieldNames = map[string]string{
	"Name":     "name",
	"Price":    "price",
	"Category": "category",
	"Unit":     "unit",
}

func (c *Controller) validateDraft() (types.MenuFields, error) {
	d := c.draft
	applyAll := d.ApplyAllLocations && c.mode == ModeCreating

	var problems []types.ValidationError
	price, ok := parsePrice(d.Price)
	if !ok {
		problems = append(problems, types.ValidationError{Field: "price", Message: "price must be a valid number"})
	}

	sub := submission{
		Name:            strings.TrimSpace(d.Name),
		Price:           price,
		Category:        strings.TrimSpace(d.Category),
		Unit:            strings.TrimSpace(d.Unit),
		RequireCategory: c.opts.RequireCategory,
		ApplyAll:        applyAll,
	}
	if err := c.validate.Struct(sub); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return types.MenuFields{}, fmt.Errorf("validating draft: %w", err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, types.ValidationError{
				Field:   fieldNames[fe.Field()],
				Message: describe(fe),
			})
		}
	}

	switch {
	case applyAll && len(c.opts.Locations) == 0:
		problems = append(problems, types.ValidationError{Field: "unit", Message: "no known locations to apply to"})
	case !applyAll && sub.Unit != "" && len(c.opts.Locations) > 0 && !slices.Contains(c.opts.Locations, sub.Unit):
		problems = append(problems, types.ValidationError{Field: "unit", Message: fmt.Sprintf("unit %q is not a known location", sub.Unit)})
	}

	if len(problems) > 0 {
		return types.MenuFields{}, &ValidationError{Problems: problems}
	}

	return types.MenuFields{
		Name:        sub.Name,
		Description: strings.TrimSpace(d.Description),
		Price:       price,
		Category:    sub.Category,
		Unit:        sub.Unit,
		Available:   d.Available,
	}, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		return "name is required"
	case "Price":
		return "price must not be negative"
	case "Category":
		return "category is required"
	case "Unit":
		return "unit is required unless the item is added to every location"
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

func parsePrice(raw string) (float64, bool) {
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
