// README: Tracking session entity and travel-status definitions.
package tracking

import (
	"sync"
	"time"

	"zdeliver/internal/types"
)

type SessionState string

const (
	StateUnassigned SessionState = "unassigned"
	StateActive     SessionState = "active"
	StateDormant    SessionState = "dormant"
	StateClosed     SessionState = "closed"
)

type TravelStatus string

const (
	TravelPreparing TravelStatus = "preparing"
	TravelOnTheWay  TravelStatus = "on_the_way"
	TravelNearby    TravelStatus = "nearby"
	TravelArrived   TravelStatus = "arrived"
)

func ValidTravelStatus(s TravelStatus) bool {
	switch s {
	case TravelPreparing, TravelOnTheWay, TravelNearby, TravelArrived:
		return true
	}
	return false
}

// LocationUpdate is one vendor position report, the unit relayed to the user.
type LocationUpdate struct {
	BookingID  types.ID     `json:"booking_id"`
	Position   types.Point  `json:"position"`
	Status     TravelStatus `json:"status"`
	At         time.Time    `json:"at"`
	ETASeconds *int         `json:"eta_seconds,omitempty"`
}

// Session pairs the assigned vendor and the ordering user for one booking.
// Each session carries its own lock so activity on one booking never
// serializes against another.
type Session struct {
	mu sync.Mutex

	BookingID types.ID
	VendorID  types.ID
	UserID    types.ID
	State     SessionState

	// Destination, when known, lets the registry enrich updates with an ETA.
	Destination *types.Point

	members      map[string]Conn
	vendorConnID string
	userConnID   string

	LastLocation *LocationUpdate
	DormantSince time.Time
}

// SessionView is the lock-free copy handed to read endpoints.
type SessionView struct {
	BookingID       types.ID        `json:"booking_id"`
	VendorID        types.ID        `json:"vendor_id"`
	UserID          types.ID        `json:"user_id"`
	State           SessionState    `json:"state"`
	VendorConnected bool            `json:"vendor_connected"`
	UserConnected   bool            `json:"user_connected"`
	LastLocation    *LocationUpdate `json:"last_location,omitempty"`
}

func (s *Session) view() SessionView {
	v := SessionView{
		BookingID:       s.BookingID,
		VendorID:        s.VendorID,
		UserID:          s.UserID,
		State:           s.State,
		VendorConnected: s.vendorConnID != "",
		UserConnected:   s.userConnID != "",
	}
	if s.LastLocation != nil {
		loc := *s.LastLocation
		v.LastLocation = &loc
	}
	return v
}
