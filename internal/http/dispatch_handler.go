// README: Smart-order handlers: dispatch, vendor resolution, read views.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/dispatch"
	"zdeliver/internal/types"
)

// DispatchService is the slice of the dispatch engine the handlers need.
type DispatchService interface {
	Dispatch(ctx context.Context, cmd dispatch.DispatchCommand) (*dispatch.Summary, error)
	ResolveStatus(ctx context.Context, cmd dispatch.StatusCommand) (*dispatch.Resolution, error)
	CheckAvailability(ctx context.Context, cartType string, p types.Point) (*dispatch.Availability, error)
	CancelRequest(ctx context.Context, id types.ID, reason string) (*dispatch.Resolution, error)
	Get(ctx context.Context, id types.ID) (*dispatch.OrderRequest, error)
	RequestsForVendor(ctx context.Context, vendorID types.ID) ([]dispatch.OrderRequest, error)
	PendingForVendor(ctx context.Context, vendorID types.ID) ([]dispatch.OrderRequest, error)
	RequestsForBooking(ctx context.Context, bookingID types.ID) ([]dispatch.OrderRequest, error)
	RequestsForUser(ctx context.Context, userID types.ID) ([]dispatch.OrderRequest, error)
}

type DispatchHandler struct {
	engine DispatchService
}

func NewDispatchHandler(engine DispatchService) *DispatchHandler {
	return &DispatchHandler{engine: engine}
}

type dispatchReq struct {
	UserID    string  `json:"user_id"`
	BookingID string  `json:"booking_id"`
	CartType  string  `json:"cart_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *DispatchHandler) Create(c *gin.Context) {
	var req dispatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	summary, err := h.engine.Dispatch(c.Request.Context(), dispatch.DispatchCommand{
		UserID:    types.ID(req.UserID),
		BookingID: types.ID(req.BookingID),
		CartType:  req.CartType,
		Location:  types.Point{Lat: req.Latitude, Lng: req.Longitude},
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, summary)
}

type statusReq struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

func (h *DispatchHandler) UpdateStatus(c *gin.Context) {
	vendorID := c.Param("vendorId")
	if vendorID == "" {
		writeError(c, http.StatusBadRequest, "missing vendor id")
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	status, err := dispatch.ParseVendorStatus(req.Status)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	res, err := h.engine.ResolveStatus(c.Request.Context(), dispatch.StatusCommand{
		VendorID:  types.ID(vendorID),
		BookingID: types.ID(req.BookingID),
		Status:    status,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type availabilityReq struct {
	CartType  string  `json:"cart_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *DispatchHandler) CheckAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	avail, err := h.engine.CheckAvailability(c.Request.Context(), req.CartType,
		types.Point{Lat: req.Latitude, Lng: req.Longitude})
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, avail)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *DispatchHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req) // body optional
	res, err := h.engine.CancelRequest(c.Request.Context(), types.ID(id), req.Reason)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *DispatchHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	req, err := h.engine.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, req)
}

func (h *DispatchHandler) ListForVendor(c *gin.Context) {
	h.list(c, func(ctx context.Context) ([]dispatch.OrderRequest, error) {
		return h.engine.RequestsForVendor(ctx, types.ID(c.Param("vendorId")))
	})
}

func (h *DispatchHandler) ListPendingForVendor(c *gin.Context) {
	h.list(c, func(ctx context.Context) ([]dispatch.OrderRequest, error) {
		return h.engine.PendingForVendor(ctx, types.ID(c.Param("vendorId")))
	})
}

func (h *DispatchHandler) ListForBooking(c *gin.Context) {
	h.list(c, func(ctx context.Context) ([]dispatch.OrderRequest, error) {
		return h.engine.RequestsForBooking(ctx, types.ID(c.Param("bookingId")))
	})
}

func (h *DispatchHandler) ListForUser(c *gin.Context) {
	h.list(c, func(ctx context.Context) ([]dispatch.OrderRequest, error) {
		return h.engine.RequestsForUser(ctx, types.ID(c.Param("userId")))
	})
}

func (h *DispatchHandler) list(c *gin.Context, fetch func(context.Context) ([]dispatch.OrderRequest, error)) {
	rows, err := fetch(c.Request.Context())
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	if rows == nil {
		rows = []dispatch.OrderRequest{}
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rows, "count": len(rows)})
}
