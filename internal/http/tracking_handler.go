// README: Tracking REST endpoints: session webhooks and read views.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/tracking"
	"zdeliver/internal/types"
)

type TrackingService interface {
	ActivateSession(bookingID, vendorID, userID types.ID)
	CloseSession(bookingID types.ID) error
	SetDestination(bookingID types.ID, p types.Point) error
	Session(bookingID types.ID) (*tracking.SessionView, error)
	Sessions() []tracking.SessionView
}

type TrackingHandler struct {
	registry TrackingService
}

func NewTrackingHandler(registry TrackingService) *TrackingHandler {
	return &TrackingHandler{registry: registry}
}

type orderAcceptedReq struct {
	BookingID string   `json:"booking_id"`
	VendorID  string   `json:"vendor_id"`
	UserID    string   `json:"user_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// OrderAccepted is the webhook mirror of the in-process activation path, for
// order systems living outside this binary. Optional coordinates set the
// delivery destination for ETA enrichment.
func (h *TrackingHandler) OrderAccepted(c *gin.Context) {
	var req orderAcceptedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BookingID == "" || req.VendorID == "" || req.UserID == "" {
		writeError(c, http.StatusBadRequest, "missing booking_id, vendor_id or user_id")
		return
	}
	h.registry.ActivateSession(types.ID(req.BookingID), types.ID(req.VendorID), types.ID(req.UserID))
	if req.Latitude != nil && req.Longitude != nil {
		p := types.Point{Lat: *req.Latitude, Lng: *req.Longitude}
		if err := h.registry.SetDestination(types.ID(req.BookingID), p); err != nil {
			writeTrackingError(c, err)
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "active"})
}

type completeReq struct {
	BookingID string `json:"booking_id"`
}

// Complete is the terminal transition for a session, fired when the booking
// finishes.
func (h *TrackingHandler) Complete(c *gin.Context) {
	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.BookingID == "" {
		writeError(c, http.StatusBadRequest, "missing booking_id")
		return
	}
	if err := h.registry.CloseSession(types.ID(req.BookingID)); err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "closed"})
}

func (h *TrackingHandler) LastLocation(c *gin.Context) {
	bookingID := c.Param("bookingId")
	view, err := h.registry.Session(types.ID(bookingID))
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	if view.LastLocation == nil {
		writeError(c, http.StatusNotFound, "no location reported yet")
		return
	}
	writeJSON(c, http.StatusOK, view.LastLocation)
}

func (h *TrackingHandler) ActiveForVendor(c *gin.Context) {
	h.filtered(c, func(v tracking.SessionView) bool {
		return v.VendorID == types.ID(c.Param("vendorId"))
	})
}

func (h *TrackingHandler) ActiveForUser(c *gin.Context) {
	h.filtered(c, func(v tracking.SessionView) bool {
		return v.UserID == types.ID(c.Param("userId"))
	})
}

func (h *TrackingHandler) filtered(c *gin.Context, keep func(tracking.SessionView) bool) {
	out := []tracking.SessionView{}
	for _, v := range h.registry.Sessions() {
		if v.State != tracking.StateClosed && keep(v) {
			out = append(out, v)
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"sessions": out, "count": len(out)})
}
