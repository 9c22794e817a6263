// README: Warehouse resolver; maps a point to the serving warehouse under a configurable fallback policy.
package warehouse

import (
	"context"
	"errors"

	"zdeliver/internal/config"
	"zdeliver/internal/types"
)

var (
	// ErrNoWarehouses means the warehouse table itself is empty.
	ErrNoWarehouses = errors.New("no warehouses exist")
	// ErrOutsideServiceArea means no bounding box contains the point and the
	// active policy forbids a distance fallback.
	ErrOutsideServiceArea = errors.New("no warehouse serves the provided location")
	ErrNotFound           = errors.New("warehouse not found")
)

// Source is the read-only warehouse lookup the resolver runs against.
type Source interface {
	All(ctx context.Context) ([]Warehouse, error)
	Get(ctx context.Context, id types.ID) (*Warehouse, error)
}

type Resolver struct {
	source Source
	cfg    config.DispatchConfig
}

func NewResolver(source Source, cfg config.DispatchConfig) *Resolver {
	return &Resolver{source: source, cfg: cfg}
}

// Resolve finds the warehouse serving p. Containment wins; ties among
// overlapping boxes break by distance to each warehouse's own point. Points
// outside every box follow the configured fallback policy.
func (r *Resolver) Resolve(ctx context.Context, p types.Point) (Warehouse, error) {
	all, err := r.source.All(ctx)
	if err != nil {
		return Warehouse{}, err
	}
	if len(all) == 0 {
		return Warehouse{}, ErrNoWarehouses
	}

	var containing []Warehouse
	for _, w := range all {
		if w.Bounds != nil && w.Bounds.Contains(p) {
			containing = append(containing, w)
		}
	}
	if len(containing) > 0 {
		return nearestTo(p, containing), nil
	}

	switch r.cfg.GeoPolicy {
	case config.GeoNearestWithinBox:
		return Warehouse{}, ErrOutsideServiceArea
	case config.GeoDefaultID:
		w, err := r.source.Get(ctx, types.ID(r.cfg.DefaultWarehouseID))
		if err != nil {
			return Warehouse{}, err
		}
		if w == nil {
			return Warehouse{}, ErrOutsideServiceArea
		}
		return *w, nil
	default: // config.GeoNearestAlways
		return nearestTo(p, all), nil
	}
}

// TestLocation reports which warehouse, if any, contains p. Unlike Resolve it
// never falls back by distance; it is the containment probe behind the admin
// test endpoint.
func (r *Resolver) TestLocation(ctx context.Context, p types.Point) (*Warehouse, error) {
	all, err := r.source.All(ctx)
	if err != nil {
		return nil, err
	}
	var containing []Warehouse
	for _, w := range all {
		if w.Bounds != nil && w.Bounds.Contains(p) {
			containing = append(containing, w)
		}
	}
	if len(containing) == 0 {
		return nil, nil
	}
	w := nearestTo(p, containing)
	return &w, nil
}

// ListAll returns every warehouse with its service area.
func (r *Resolver) ListAll(ctx context.Context) ([]Warehouse, error) {
	return r.source.All(ctx)
}

// Get returns a single warehouse by id.
func (r *Resolver) Get(ctx context.Context, id types.ID) (*Warehouse, error) {
	return r.source.Get(ctx, id)
}
