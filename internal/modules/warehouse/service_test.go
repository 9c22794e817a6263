// README: Resolver unit tests covering containment, tie-breaks, and fallback policies.
package warehouse

import (
	"context"
	"math"
	"testing"

	"zdeliver/internal/config"
	"zdeliver/internal/types"
)

// mockSource is an in-memory Source for resolver tests.
type mockSource struct {
	warehouses []Warehouse
}

func (m *mockSource) All(_ context.Context) ([]Warehouse, error) {
	cp := make([]Warehouse, len(m.warehouses))
	copy(cp, m.warehouses)
	return cp, nil
}

func (m *mockSource) Get(_ context.Context, id types.ID) (*Warehouse, error) {
	for _, w := range m.warehouses {
		if w.ID == id {
			cp := w
			return &cp, nil
		}
	}
	return nil, nil
}

func box(minLat, maxLat, minLng, maxLng float64) *BoundingBox {
	return &BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
}

func testWarehouses() []Warehouse {
	return []Warehouse{
		{
			ID: "w_south", Name: "South Hub",
			Location: types.Point{Lat: 12.90, Lng: 77.60},
			Bounds:   box(12.80, 13.00, 77.50, 77.70),
		},
		{
			ID: "w_north", Name: "North Hub",
			Location: types.Point{Lat: 13.10, Lng: 77.60},
			Bounds:   box(12.95, 13.25, 77.50, 77.70),
		},
		{
			ID: "w_east", Name: "East Hub",
			Location: types.Point{Lat: 12.95, Lng: 77.75},
			Bounds:   nil, // no service area drawn yet
		},
	}
}

func newResolver(policy config.GeoPolicy, defaultID string) *Resolver {
	return NewResolver(&mockSource{warehouses: testWarehouses()}, config.DispatchConfig{
		GeoPolicy:          policy,
		DefaultWarehouseID: defaultID,
	})
}

func TestResolve_SingleContainingBox(t *testing.T) {
	r := newResolver(config.GeoNearestAlways, "")
	w, err := r.Resolve(context.Background(), types.Point{Lat: 12.85, Lng: 77.60})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.ID != "w_south" {
		t.Fatalf("expected w_south, got %s", w.ID)
	}
}

func TestResolve_OverlapBreaksByDistance(t *testing.T) {
	r := newResolver(config.GeoNearestAlways, "")
	// Point inside both boxes, closer to the north warehouse point.
	w, err := r.Resolve(context.Background(), types.Point{Lat: 12.99, Lng: 77.60})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.ID != "w_north" {
		t.Fatalf("expected w_north by distance tie-break, got %s", w.ID)
	}
}

func TestResolve_OutsideBoxes(t *testing.T) {
	far := types.Point{Lat: 11.0, Lng: 76.0} // outside every box, closest to w_south

	tests := []struct {
		name      string
		policy    config.GeoPolicy
		defaultID string
		wantID    types.ID
		wantErr   error
	}{
		{name: "nearest always falls back by distance", policy: config.GeoNearestAlways, wantID: "w_south"},
		{name: "strict policy refuses", policy: config.GeoNearestWithinBox, wantErr: ErrOutsideServiceArea},
		{name: "default id policy", policy: config.GeoDefaultID, defaultID: "w_east", wantID: "w_east"},
		{name: "default id missing refuses", policy: config.GeoDefaultID, defaultID: "w_gone", wantErr: ErrOutsideServiceArea},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(tt.policy, tt.defaultID)
			w, err := r.Resolve(context.Background(), far)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if w.ID != tt.wantID {
				t.Fatalf("expected %s, got %s", tt.wantID, w.ID)
			}
		})
	}
}

func TestResolve_EmptySet(t *testing.T) {
	r := NewResolver(&mockSource{}, config.DispatchConfig{GeoPolicy: config.GeoNearestAlways})
	_, err := r.Resolve(context.Background(), types.Point{Lat: 12.9, Lng: 77.6})
	if err != ErrNoWarehouses {
		t.Fatalf("expected ErrNoWarehouses, got %v", err)
	}
}

func TestTestLocation_NoDistanceFallback(t *testing.T) {
	r := newResolver(config.GeoNearestAlways, "")
	w, err := r.TestLocation(context.Background(), types.Point{Lat: 11.0, Lng: 76.0})
	if err != nil {
		t.Fatalf("test location: %v", err)
	}
	if w != nil {
		t.Fatalf("expected no containment, got %s", w.ID)
	}
}

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:   "same point",
			a:      types.Point{Lat: 12.9, Lng: 77.6},
			b:      types.Point{Lat: 12.9, Lng: 77.6},
			wantKm: 0, tolerance: 0.001,
		},
		{
			name:   "Bangalore to Mysore (~130km)",
			a:      types.Point{Lat: 12.9716, Lng: 77.5946},
			b:      types.Point{Lat: 12.2958, Lng: 76.6394},
			wantKm: 130, tolerance: 10,
		},
		{
			name:   "New York to Los Angeles (~3944km)",
			a:      types.Point{Lat: 40.7128, Lng: -74.0060},
			b:      types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm: 3944, tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("haversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestBoundingBox_Borders(t *testing.T) {
	b := BoundingBox{MinLat: 1, MaxLat: 2, MinLng: 3, MaxLng: 4}
	if !b.Contains(types.Point{Lat: 1, Lng: 3}) {
		t.Error("border point should be contained")
	}
	if b.Contains(types.Point{Lat: 0.999, Lng: 3}) {
		t.Error("point below min_lat should not be contained")
	}
}
