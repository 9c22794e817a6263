// README: Handler tests for the smart-order endpoints.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"zdeliver/internal/modules/dispatch"
	"zdeliver/internal/types"
)

// stubEngine scripts the engine's answers per test.
type stubEngine struct {
	summary    *dispatch.Summary
	resolution *dispatch.Resolution
	err        error
}

func (s *stubEngine) Dispatch(context.Context, dispatch.DispatchCommand) (*dispatch.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) ResolveStatus(context.Context, dispatch.StatusCommand) (*dispatch.Resolution, error) {
	return s.resolution, s.err
}

func (s *stubEngine) CheckAvailability(context.Context, string, types.Point) (*dispatch.Availability, error) {
	return &dispatch.Availability{Available: true, VendorCount: 2}, s.err
}

func (s *stubEngine) CancelRequest(context.Context, types.ID, string) (*dispatch.Resolution, error) {
	return s.resolution, s.err
}

func (s *stubEngine) Get(context.Context, types.ID) (*dispatch.OrderRequest, error) {
	return nil, dispatch.ErrNotFound
}

func (s *stubEngine) RequestsForVendor(context.Context, types.ID) ([]dispatch.OrderRequest, error) {
	return nil, nil
}

func (s *stubEngine) PendingForVendor(context.Context, types.ID) ([]dispatch.OrderRequest, error) {
	return nil, nil
}

func (s *stubEngine) RequestsForBooking(context.Context, types.ID) ([]dispatch.OrderRequest, error) {
	return nil, nil
}

func (s *stubEngine) RequestsForUser(context.Context, types.ID) ([]dispatch.OrderRequest, error) {
	return nil, nil
}

func buildTestRouter(engine DispatchService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDispatchHandler(engine)
	r := gin.New()
	r.POST("/api/smart-orders", h.Create)
	r.PUT("/api/smart-orders/vendor/:vendorId/status", h.UpdateStatus)
	r.GET("/api/smart-orders/vendor/:vendorId/requests", h.ListForVendor)
	r.GET("/api/smart-orders/requests/:id", h.Get)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreate_ReturnsSummary(t *testing.T) {
	engine := &stubEngine{summary: &dispatch.Summary{
		Status:          "processing",
		RequestsCreated: 3,
	}}
	r := buildTestRouter(engine)

	w := doRequest(r, http.MethodPost, "/api/smart-orders", map[string]any{
		"user_id":    "u1",
		"booking_id": "b1",
		"cart_type":  "vegetable",
		"latitude":   24.99,
		"longitude":  121.54,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got dispatch.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "processing" || got.RequestsCreated != 3 {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestCreate_BadJSON(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	req := httptest.NewRequest(http.MethodPost, "/api/smart-orders", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreate_NoServiceArea(t *testing.T) {
	r := buildTestRouter(&stubEngine{err: dispatch.ErrNoServiceArea})
	w := doRequest(r, http.MethodPost, "/api/smart-orders", map[string]any{
		"user_id":    "u1",
		"booking_id": "b1",
		"cart_type":  "vegetable",
		"latitude":   60.0,
		"longitude":  10.0,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateStatus_ConflictNamesWinner(t *testing.T) {
	r := buildTestRouter(&stubEngine{err: &dispatch.AlreadyAcceptedError{
		WinnerVendorID:   "v2",
		WinnerVendorName: "Fruit Stand",
		RequestID:        "req_2",
	}})

	w := doRequest(r, http.MethodPut, "/api/smart-orders/vendor/v1/status", map[string]any{
		"booking_id": "b1",
		"status":     "accepted",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["vendor_id"] != "v2" || body["vendor_name"] != "Fruit Stand" {
		t.Errorf("conflict body missing winner details: %v", body)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	w := doRequest(r, http.MethodPut, "/api/smart-orders/vendor/v1/status", map[string]any{
		"booking_id": "b1",
		"status":     "maybe",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	w := doRequest(r, http.MethodGet, "/api/smart-orders/requests/req_x", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListForVendor_EmptyIsOK(t *testing.T) {
	r := buildTestRouter(&stubEngine{})
	w := doRequest(r, http.MethodGet, "/api/smart-orders/vendor/v1/requests", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count    int                     `json:"count"`
		Requests []dispatch.OrderRequest `json:"requests"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 0 || body.Requests == nil {
		t.Errorf("expected empty list, got %+v", body)
	}
}
