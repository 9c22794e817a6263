// README: Warehouse aggregate and service-area bounding box.
package warehouse

import (
	"time"

	"zdeliver/internal/types"
)

// BoundingBox is a warehouse's rectangular service-area approximation.
type BoundingBox struct {
	MinLat float64 `json:"min_latitude"`
	MaxLat float64 `json:"max_latitude"`
	MinLng float64 `json:"min_longitude"`
	MaxLng float64 `json:"max_longitude"`
}

// Contains reports whether the point falls inside the box, borders included.
func (b BoundingBox) Contains(p types.Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

type Warehouse struct {
	ID        types.ID     `json:"id"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	Location  types.Point  `json:"location"`
	Bounds    *BoundingBox `json:"bounds,omitempty"` // nil when admin tooling has not drawn a service area yet
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
