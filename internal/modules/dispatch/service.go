// README: Dispatch engine; fans a booking out to matching vendors and arbitrates acceptance.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"zdeliver/internal/modules/notify"
	"zdeliver/internal/modules/party"
	"zdeliver/internal/modules/vendor"
	"zdeliver/internal/modules/warehouse"
	"zdeliver/internal/types"
)

var (
	ErrNotFound           = errors.New("order request not found")
	ErrBadRequest         = errors.New("missing or malformed dispatch fields")
	ErrInvalidStatus      = errors.New("status must be accepted or rejected")
	ErrNoServiceArea      = errors.New("location is outside every service area")
	ErrNoVendorsAvailable = errors.New("no vendors available for this cart type")
)

// WarehouseResolver maps the customer's location onto a serving warehouse.
type WarehouseResolver interface {
	Resolve(ctx context.Context, p types.Point) (warehouse.Warehouse, error)
}

// VendorDirectory supplies the candidate set and per-vendor lookups.
type VendorDirectory interface {
	FindCandidates(ctx context.Context, warehouseID types.ID, cartType string) ([]vendor.Vendor, error)
	Get(ctx context.Context, id types.ID) (*vendor.Vendor, error)
}

// RequestStore is the order-request persistence contract. AcceptIfPending and
// MarkIfPending are compare-and-set operations: they succeed only when the row
// is still pending, so concurrent acceptances settle in the database.
type RequestStore interface {
	Create(ctx context.Context, req *OrderRequest) error
	AcceptIfPending(ctx context.Context, vendorID, bookingID types.ID) (*OrderRequest, error)
	MarkIfPending(ctx context.Context, vendorID, bookingID types.ID, to Status, reason string) (*OrderRequest, error)
	CancelOtherPending(ctx context.Context, bookingID, winnerVendorID types.ID, reason string) (int64, error)
	CancelIfPending(ctx context.Context, id types.ID, reason string) (*OrderRequest, error)
	GetByVendorAndBooking(ctx context.Context, vendorID, bookingID types.ID) (*OrderRequest, error)
	FindAcceptedByBooking(ctx context.Context, bookingID types.ID) (*OrderRequest, error)
	Get(ctx context.Context, id types.ID) (*OrderRequest, error)
	ListByVendor(ctx context.Context, vendorID types.ID) ([]OrderRequest, error)
	ListByBooking(ctx context.Context, bookingID types.ID) ([]OrderRequest, error)
	ListByUser(ctx context.Context, userID types.ID) ([]OrderRequest, error)
	ListPending(ctx context.Context, vendorID types.ID) ([]OrderRequest, error)
}

// Fanout is the slice of the notify package dispatch needs.
type Fanout interface {
	NotifyAll(ctx context.Context, targets []notify.Target) []notify.Result
	NotifyUser(ctx context.Context, bookingID, userID, vendorID types.ID, token, title, body string, data map[string]string) error
}

// SessionActivator wakes the tracking session once a vendor is assigned.
type SessionActivator interface {
	ActivateSession(bookingID, vendorID, userID types.ID)
}

// Parties resolves the human side of a booking for notification content.
type Parties interface {
	User(ctx context.Context, id types.ID) (*party.User, error)
	Booking(ctx context.Context, id types.ID) (*party.Booking, error)
}

type Engine struct {
	warehouses WarehouseResolver
	vendors    VendorDirectory
	store      RequestStore
	fanout     Fanout
	tracking   SessionActivator
	parties    Parties
}

func NewEngine(
	warehouses WarehouseResolver,
	vendors VendorDirectory,
	store RequestStore,
	fanout Fanout,
	tracking SessionActivator,
	parties Parties,
) *Engine {
	return &Engine{
		warehouses: warehouses,
		vendors:    vendors,
		store:      store,
		fanout:     fanout,
		tracking:   tracking,
		parties:    parties,
	}
}

// Dispatch resolves the serving warehouse, creates one pending request per
// matching vendor and pushes the offer to all of them. The response is always
// "processing": assignment only happens when a vendor answers.
func (e *Engine) Dispatch(ctx context.Context, cmd DispatchCommand) (*Summary, error) {
	if cmd.UserID == "" || cmd.BookingID == "" || cmd.CartType == "" || !cmd.Location.Valid() {
		return nil, ErrBadRequest
	}

	booking, err := e.parties.Booking(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", cmd.BookingID, ErrNotFound)
	}

	wh, err := e.warehouses.Resolve(ctx, cmd.Location)
	if err != nil {
		if errors.Is(err, warehouse.ErrNoWarehouses) || errors.Is(err, warehouse.ErrOutsideServiceArea) {
			return nil, ErrNoServiceArea
		}
		return nil, err
	}

	candidates, err := e.vendors.FindCandidates(ctx, wh.ID, cmd.CartType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoVendorsAvailable
	}

	created := e.createRequests(ctx, cmd, candidates)
	if len(created) == 0 {
		return nil, fmt.Errorf("dispatch booking %s: every request insert failed", cmd.BookingID)
	}

	targets := make([]notify.Target, len(created))
	for i, c := range created {
		targets[i] = notify.Target{
			VendorID: c.vendor.ID,
			UserID:   cmd.UserID,
			Token:    c.vendor.PushToken,
			Title:    "New Order Request",
			Body:     fmt.Sprintf("New %s order near %s. Tap to respond.", cmd.CartType, wh.Name),
			Data: map[string]string{
				"type":             "order_request",
				"order_request_id": string(c.request.ID),
				"booking_id":       string(cmd.BookingID),
				"cart_type":        cmd.CartType,
			},
		}
	}
	results := e.fanout.NotifyAll(ctx, targets)

	summary := &Summary{
		Status: "processing",
		Warehouse: WarehouseInfo{
			ID:      wh.ID,
			Name:    wh.Name,
			Address: wh.Address,
		},
		CandidateCount:    len(candidates),
		RequestsCreated:   len(created),
		NotificationsSent: notify.CountSent(results),
		Requests:          make([]CreatedRequest, len(created)),
	}
	for i, c := range created {
		summary.Requests[i] = CreatedRequest{
			RequestID:  c.request.ID,
			VendorID:   c.vendor.ID,
			VendorName: c.vendor.Name,
		}
	}
	return summary, nil
}

type createdPair struct {
	vendor  vendor.Vendor
	request *OrderRequest
}

// createRequests inserts one pending row per candidate concurrently. A failed
// insert drops that vendor from the round but never aborts the dispatch.
func (e *Engine) createRequests(ctx context.Context, cmd DispatchCommand, candidates []vendor.Vendor) []createdPair {
	var (
		mu      sync.Mutex
		created []createdPair
		wg      sync.WaitGroup
	)
	for _, v := range candidates {
		wg.Add(1)
		go func(v vendor.Vendor) {
			defer wg.Done()
			req := &OrderRequest{
				VendorID:  v.ID,
				BookingID: cmd.BookingID,
				UserID:    cmd.UserID,
				Status:    StatusPending,
			}
			if err := e.store.Create(ctx, req); err != nil {
				log.Printf("dispatch: create request for vendor %s booking %s: %v", v.ID, cmd.BookingID, err)
				return
			}
			mu.Lock()
			created = append(created, createdPair{vendor: v, request: req})
			mu.Unlock()
		}(v)
	}
	wg.Wait()
	return created
}

// ResolveStatus applies a vendor's accept or reject answer. Acceptance is a
// compare-and-set in the store; the first vendor through wins and every pending
// sibling is canceled before the call returns. A loser gets an
// AlreadyAcceptedError naming the winner, except that a repeated accept from
// the winner itself reads back as success.
func (e *Engine) ResolveStatus(ctx context.Context, cmd StatusCommand) (*Resolution, error) {
	if cmd.VendorID == "" || cmd.BookingID == "" {
		return nil, ErrBadRequest
	}

	switch cmd.Status {
	case StatusAccepted:
		return e.accept(ctx, cmd)
	case StatusRejected:
		return e.reject(ctx, cmd)
	default:
		return nil, ErrInvalidStatus
	}
}

func (e *Engine) accept(ctx context.Context, cmd StatusCommand) (*Resolution, error) {
	req, err := e.store.AcceptIfPending(ctx, cmd.VendorID, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return e.acceptConflict(ctx, cmd)
	}

	canceled, err := e.store.CancelOtherPending(ctx, cmd.BookingID, cmd.VendorID, CanceledByPeerReason)
	if err != nil {
		// The winner is already committed; siblings left pending will age out.
		log.Printf("dispatch: cascade cancel for booking %s: %v", cmd.BookingID, err)
	}

	go e.afterAccept(req)

	return &Resolution{
		RequestID:        req.ID,
		Status:           StatusAccepted,
		CanceledSiblings: canceled,
	}, nil
}

// acceptConflict sorts out why a conditional accept hit no pending row.
func (e *Engine) acceptConflict(ctx context.Context, cmd StatusCommand) (*Resolution, error) {
	winner, err := e.store.FindAcceptedByBooking(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		// No winner either: this vendor was never offered the booking, or the
		// request already moved to rejected/canceled.
		return nil, ErrNotFound
	}
	if winner.VendorID == cmd.VendorID {
		// Retry from the winner itself reads back as success.
		return &Resolution{RequestID: winner.ID, Status: StatusAccepted}, nil
	}

	name := ""
	if v, err := e.vendors.Get(ctx, winner.VendorID); err == nil && v != nil {
		name = v.Name
	}
	return nil, &AlreadyAcceptedError{
		WinnerVendorID:   winner.VendorID,
		WinnerVendorName: name,
		RequestID:        winner.ID,
	}
}

// afterAccept runs the side effects that must not delay the vendor's response:
// telling the customer and waking the tracking session. Detached from the
// request context on purpose.
func (e *Engine) afterAccept(req *OrderRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if e.tracking != nil {
		e.tracking.ActivateSession(req.BookingID, req.VendorID, req.UserID)
	}

	u, err := e.parties.User(ctx, req.UserID)
	if err != nil {
		log.Printf("dispatch: load user %s after accept: %v", req.UserID, err)
		return
	}
	if u == nil {
		log.Printf("dispatch: user %s not found after accept", req.UserID)
		return
	}
	vendorName := "A vendor"
	if v, err := e.vendors.Get(ctx, req.VendorID); err == nil && v != nil {
		vendorName = v.Name
	}
	err = e.fanout.NotifyUser(ctx, req.BookingID, req.UserID, req.VendorID,
		u.PushToken,
		"Order Accepted",
		fmt.Sprintf("%s accepted your order and is preparing it now.", vendorName),
		map[string]string{
			"type":       "order_accepted",
			"booking_id": string(req.BookingID),
			"vendor_id":  string(req.VendorID),
		},
	)
	if err != nil {
		log.Printf("dispatch: notify user %s after accept: %v", req.UserID, err)
	}
}

func (e *Engine) reject(ctx context.Context, cmd StatusCommand) (*Resolution, error) {
	req, err := e.store.MarkIfPending(ctx, cmd.VendorID, cmd.BookingID, StatusRejected, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if req == nil {
		// Rejecting a settled request is not a race worth surfacing; tell the
		// vendor what actually happened instead.
		existing, err := e.store.GetByVendorAndBooking(ctx, cmd.VendorID, cmd.BookingID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return &Resolution{RequestID: existing.ID, Status: existing.Status}, nil
	}

	go e.afterReject(req)

	return &Resolution{RequestID: req.ID, Status: StatusRejected}, nil
}

// afterReject reassures the customer while other vendors still hold the offer.
func (e *Engine) afterReject(req *OrderRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := e.parties.User(ctx, req.UserID)
	if err != nil || u == nil {
		log.Printf("dispatch: load user %s after reject: %v", req.UserID, err)
		return
	}
	err = e.fanout.NotifyUser(ctx, req.BookingID, req.UserID, req.VendorID,
		u.PushToken,
		"Still Searching",
		"Looking for another vendor...",
		map[string]string{
			"type":       "order_rejected",
			"booking_id": string(req.BookingID),
		},
	)
	if err != nil {
		log.Printf("dispatch: notify user %s after reject: %v", req.UserID, err)
	}
}

// CheckAvailability answers "could this order be dispatched" without creating
// any rows: resolve the warehouse, count the matching vendors.
func (e *Engine) CheckAvailability(ctx context.Context, cartType string, p types.Point) (*Availability, error) {
	if cartType == "" || !p.Valid() {
		return nil, ErrBadRequest
	}
	wh, err := e.warehouses.Resolve(ctx, p)
	if err != nil {
		if errors.Is(err, warehouse.ErrNoWarehouses) || errors.Is(err, warehouse.ErrOutsideServiceArea) {
			return &Availability{Available: false}, nil
		}
		return nil, err
	}
	candidates, err := e.vendors.FindCandidates(ctx, wh.ID, cartType)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Available:     len(candidates) > 0,
		VendorCount:   len(candidates),
		WarehouseName: wh.Name,
	}, nil
}

// CancelRequest is the user-side withdrawal of a single pending request.
// Settled requests are left untouched and reported as-is.
func (e *Engine) CancelRequest(ctx context.Context, id types.ID, reason string) (*Resolution, error) {
	req, err := e.store.CancelIfPending(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if req == nil {
		existing, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return &Resolution{RequestID: existing.ID, Status: existing.Status}, nil
	}
	return &Resolution{RequestID: req.ID, Status: StatusCanceled}, nil
}

// Get returns one order request by id.
func (e *Engine) Get(ctx context.Context, id types.ID) (*OrderRequest, error) {
	req, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

// RequestsForVendor lists every request ever offered to a vendor.
func (e *Engine) RequestsForVendor(ctx context.Context, vendorID types.ID) ([]OrderRequest, error) {
	return e.store.ListByVendor(ctx, vendorID)
}

// PendingForVendor lists the vendor's open offers.
func (e *Engine) PendingForVendor(ctx context.Context, vendorID types.ID) ([]OrderRequest, error) {
	return e.store.ListPending(ctx, vendorID)
}

// RequestsForBooking lists the whole round for one booking.
func (e *Engine) RequestsForBooking(ctx context.Context, bookingID types.ID) ([]OrderRequest, error) {
	return e.store.ListByBooking(ctx, bookingID)
}

// RequestsForUser lists a customer's dispatch history.
func (e *Engine) RequestsForUser(ctx context.Context, userID types.ID) ([]OrderRequest, error) {
	return e.store.ListByUser(ctx, userID)
}
