// README: HTTP helper utilities for JSON and error mapping.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/dispatch"
	"zdeliver/internal/modules/tracking"
	"zdeliver/internal/modules/vendor"
	"zdeliver/internal/modules/warehouse"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDispatchError(c *gin.Context, err error) {
	var conflict *dispatch.AlreadyAcceptedError
	if errors.As(err, &conflict) {
		writeJSON(c, http.StatusConflict, gin.H{
			"error":            "order already accepted by another vendor",
			"vendor_id":        conflict.WinnerVendorID,
			"vendor_name":      conflict.WinnerVendorName,
			"order_request_id": conflict.RequestID,
		})
		return
	}
	switch {
	case errors.Is(err, dispatch.ErrBadRequest), errors.Is(err, dispatch.ErrInvalidStatus):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrNoServiceArea), errors.Is(err, dispatch.ErrNoVendorsAvailable):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeWarehouseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, warehouse.ErrNoWarehouses), errors.Is(err, warehouse.ErrOutsideServiceArea), errors.Is(err, warehouse.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTrackingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tracking.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, tracking.ErrInvalidTravelStatus), errors.Is(err, tracking.ErrNotAssignedVendor):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeVendorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vendor.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
