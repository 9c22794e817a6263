// README: Warehouse read endpoints: listing, point resolution, containment probe.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/warehouse"
	"zdeliver/internal/types"
)

type WarehouseService interface {
	Resolve(ctx context.Context, p types.Point) (warehouse.Warehouse, error)
	TestLocation(ctx context.Context, p types.Point) (*warehouse.Warehouse, error)
	ListAll(ctx context.Context) ([]warehouse.Warehouse, error)
}

type WarehouseHandler struct {
	warehouses WarehouseService
}

func NewWarehouseHandler(svc WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouses: svc}
}

func (h *WarehouseHandler) List(c *gin.Context) {
	all, err := h.warehouses.ListAll(c.Request.Context())
	if err != nil {
		writeWarehouseError(c, err)
		return
	}
	if all == nil {
		all = []warehouse.Warehouse{}
	}
	writeJSON(c, http.StatusOK, gin.H{"warehouses": all, "count": len(all)})
}

type pointReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *WarehouseHandler) Find(c *gin.Context) {
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := types.Point{Lat: req.Latitude, Lng: req.Longitude}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	wh, err := h.warehouses.Resolve(c.Request.Context(), p)
	if err != nil {
		writeWarehouseError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, wh)
}

// TestLocation answers "which warehouse box contains this point", with no
// distance fallback. Admin tooling uses it to verify service areas.
func (h *WarehouseHandler) TestLocation(c *gin.Context) {
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := types.Point{Lat: req.Latitude, Lng: req.Longitude}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	wh, err := h.warehouses.TestLocation(c.Request.Context(), p)
	if err != nil {
		writeWarehouseError(c, err)
		return
	}
	if wh == nil {
		writeJSON(c, http.StatusOK, gin.H{"inside_service_area": false})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"inside_service_area": true, "warehouse": wh})
}
