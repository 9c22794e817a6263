// README: Order-request entity and status definitions.
package dispatch

import (
	"fmt"
	"time"

	"zdeliver/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusCanceled Status = "canceled"
)

// AllowedTransitions represents the order-request state flow as code. Pending
// is the only non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusPending: {StatusAccepted, StatusRejected, StatusCanceled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ParseVendorStatus validates a vendor-supplied status update. Vendors may
// only accept or reject; cancellation belongs to the system and the user.
func ParseVendorStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAccepted, StatusRejected:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// CanceledByPeerReason is the reason written onto cascade-canceled siblings.
const CanceledByPeerReason = "Order accepted by another vendor"

// OrderRequest pairs one candidate vendor with one booking. Many rows share a
// booking_id; at most one of them ever reaches StatusAccepted.
type OrderRequest struct {
	ID        types.ID  `json:"id"`
	VendorID  types.ID  `json:"vendor_id"`
	BookingID types.ID  `json:"booking_id"`
	UserID    types.ID  `json:"user_id"`
	Status    Status    `json:"status"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DispatchCommand struct {
	UserID    types.ID
	BookingID types.ID
	CartType  string
	Location  types.Point
}

type StatusCommand struct {
	VendorID  types.ID
	BookingID types.ID
	Status    Status
	Reason    string
}

// WarehouseInfo is the caller-facing slice of the resolved warehouse.
type WarehouseInfo struct {
	ID      types.ID `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
}

type CreatedRequest struct {
	RequestID  types.ID `json:"order_request_id"`
	VendorID   types.ID `json:"vendor_id"`
	VendorName string   `json:"vendor_name"`
}

// Summary is the dispatch response. Status is always "processing";
// assignment happens later, asynchronously, through ResolveStatus.
type Summary struct {
	Status            string           `json:"request_status"`
	Warehouse         WarehouseInfo    `json:"closest_warehouse"`
	CandidateCount    int              `json:"matching_vendors_count"`
	RequestsCreated   int              `json:"order_requests_created"`
	NotificationsSent int              `json:"notifications_sent"`
	Requests          []CreatedRequest `json:"requests"`
}

// Resolution is the outcome of a vendor status update.
type Resolution struct {
	RequestID        types.ID `json:"order_request_id"`
	Status           Status   `json:"status"`
	CanceledSiblings int64    `json:"canceled_siblings"`
}

// Availability answers the pre-dispatch capacity check without creating rows.
type Availability struct {
	Available     bool   `json:"available"`
	VendorCount   int    `json:"vendor_count"`
	WarehouseName string `json:"warehouse,omitempty"`
}

// AlreadyAcceptedError reports a lost acceptance race with enough detail for
// the client to update its UI without re-polling.
type AlreadyAcceptedError struct {
	WinnerVendorID   types.ID
	WinnerVendorName string
	RequestID        types.ID
}

func (e *AlreadyAcceptedError) Error() string {
	return fmt.Sprintf("order already accepted by vendor %s", e.WinnerVendorID)
}
