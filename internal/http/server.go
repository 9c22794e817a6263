// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zdeliver/internal/http/middleware"
)

type ServerDeps struct {
	Dispatch   DispatchService
	Warehouses WarehouseService
	Vendors    VendorService
	Tracking   TrackingService
	Realtime   RealtimeRegistry
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.Prometheus())

	dispatchHandler := NewDispatchHandler(s.deps.Dispatch)
	smart := r.Group("/api/smart-orders")
	smart.POST("", dispatchHandler.Create)
	smart.PUT("/vendor/:vendorId/status", dispatchHandler.UpdateStatus)
	smart.GET("/vendor/:vendorId/requests", dispatchHandler.ListForVendor)
	smart.GET("/vendor/:vendorId/pending", dispatchHandler.ListPendingForVendor)
	smart.GET("/requests/:id", dispatchHandler.Get)
	smart.POST("/requests/:id/cancel", dispatchHandler.Cancel)
	smart.GET("/booking/:bookingId/requests", dispatchHandler.ListForBooking)
	smart.GET("/users/:userId/history", dispatchHandler.ListForUser)
	smart.POST("/check-availability", dispatchHandler.CheckAvailability)

	warehouseHandler := NewWarehouseHandler(s.deps.Warehouses)
	r.GET("/api/warehouses", warehouseHandler.List)
	r.POST("/api/warehouses/find", warehouseHandler.Find)
	r.POST("/api/warehouses/test-location", warehouseHandler.TestLocation)

	vendorHandler := NewVendorHandler(s.deps.Vendors)
	r.PUT("/api/vendors/:id/live", vendorHandler.ReportLive)
	r.POST("/api/vendors/nearest", vendorHandler.Nearest)
	r.GET("/api/vendors/warehouse/:warehouseId/stats", vendorHandler.Stats)

	trackingHandler := NewTrackingHandler(s.deps.Tracking)
	trk := r.Group("/api/tracking")
	trk.POST("/order-accepted", trackingHandler.OrderAccepted)
	trk.POST("/complete", trackingHandler.Complete)
	trk.GET("/location/:bookingId", trackingHandler.LastLocation)
	trk.GET("/vendor/:vendorId/active-orders", trackingHandler.ActiveForVendor)
	trk.GET("/client/:userId/active-orders", trackingHandler.ActiveForUser)

	wsHandler := NewWSHandler(s.deps.Realtime)
	r.GET("/ws", wsHandler.Handle)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
