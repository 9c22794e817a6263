// README: Vendor live-position endpoints backed by the Redis geo index.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/vendor"
	"zdeliver/internal/types"
)

type VendorService interface {
	ReportLive(ctx context.Context, vendorID types.ID, p types.Point, status vendor.LiveStatus) error
	FindNearestAvailable(ctx context.Context, p types.Point) (*vendor.LivePosition, error)
	StatsByWarehouse(ctx context.Context, warehouseID types.ID) (vendor.Stats, error)
}

type VendorHandler struct {
	vendors VendorService
}

func NewVendorHandler(svc VendorService) *VendorHandler {
	return &VendorHandler{vendors: svc}
}

type liveReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    string  `json:"status"`
}

func (h *VendorHandler) ReportLive(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing vendor id")
		return
	}
	var req liveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := types.Point{Lat: req.Latitude, Lng: req.Longitude}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	err := h.vendors.ReportLive(c.Request.Context(), types.ID(id), p, vendor.LiveStatus(req.Status))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// Stats reports per-cart-type vendor counts for one warehouse.
func (h *VendorHandler) Stats(c *gin.Context) {
	id := c.Param("warehouseId")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing warehouse id")
		return
	}
	stats, err := h.vendors.StatsByWarehouse(c.Request.Context(), types.ID(id))
	if err != nil {
		writeVendorError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stats)
}

func (h *VendorHandler) Nearest(c *gin.Context) {
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
	hit, err := h.vendors.FindNearestAvailable(c.Request.Context(), p)
	if err != nil {
		writeVendorError(c, err)
		return
	}
	if hit == nil {
		writeError(c, http.StatusNotFound, "no live vendors nearby")
		return
	}
	writeJSON(c, http.StatusOK, hit)
}
