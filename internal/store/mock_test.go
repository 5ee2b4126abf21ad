package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// memGateway behaves like a tiny object store. The Fn fields, when set,
// replace the default behaviour of the matching method.
type memGateway struct {
	mu      sync.Mutex
	seq     int
	records []types.MenuRecord
	calls   map[string]int

	ListFn   func(ctx context.Context, class string) ([]types.MenuRecord, error)
	CreateFn func(ctx context.Context, class string, fields types.MenuFields) (string, error)
	UpdateFn func(ctx context.Context, class, id string, patch types.MenuPatch) error
	DeleteFn func(ctx context.Context, class, id string) error
}

func newMemGateway(records ...types.MenuRecord) *memGateway {
	return &memGateway{records: records, calls: map[string]int{}}
}

func (g *memGateway) count(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *memGateway) List(ctx context.Context, class string) ([]types.MenuRecord, error) {
	g.mu.Lock()
	g.calls["List"]++
	g.mu.Unlock()
	if g.ListFn != nil {
		return g.ListFn(ctx, class)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]types.MenuRecord, len(g.records))
	copy(out, g.records)
	return out, nil
}

func (g *memGateway) Create(ctx context.Context, class string, fields types.MenuFields) (string, error) {
	g.mu.Lock()
	g.calls["Create"]++
	g.mu.Unlock()
	if g.CreateFn != nil {
		return g.CreateFn(ctx, class, fields)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("obj%03d", g.seq)
	price := fields.Price
	available := fields.Available
	now := time.Date(2025, 3, 1, 12, 0, g.seq, 0, time.UTC)
	g.records = append(g.records, types.MenuRecord{
		ID:          id,
		Name:        fields.Name,
		Description: fields.Description,
		Price:       &price,
		Category:    fields.Category,
		Unit:        fields.Unit,
		Available:   &available,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return id, nil
}

func (g *memGateway) Update(ctx context.Context, class, id string, patch types.MenuPatch) error {
	g.mu.Lock()
	g.calls["Update"]++
	g.mu.Unlock()
	if g.UpdateFn != nil {
		return g.UpdateFn(ctx, class, id, patch)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.records {
		if g.records[i].ID != id {
			continue
		}
		rec := &g.records[i]
		if patch.Name != nil {
			rec.Name = *patch.Name
		}
		if patch.Description != nil {
			rec.Description = *patch.Description
		}
		if patch.Price != nil {
			price := *patch.Price
			rec.Price = &price
		}
		if patch.Category != nil {
			rec.Category = *patch.Category
		}
		if patch.Unit != nil {
			rec.Unit = *patch.Unit
		}
		if patch.Available != nil {
			available := *patch.Available
			rec.Available = &available
		}
		return nil
	}
	return fmt.Errorf("object %q not found", id)
}

func (g *memGateway) Delete(ctx context.Context, class, id string) error {
	g.mu.Lock()
	g.calls["Delete"]++
	g.mu.Unlock()
	if g.DeleteFn != nil {
		return g.DeleteFn(ctx, class, id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.records {
		if g.records[i].ID == id {
			g.records = append(g.records[:i], g.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("object %q not found", id)
}
