// README: Read-only views of users and bookings owned by the commerce subsystem.
package party

import (
	"time"

	"zdeliver/internal/types"
)

type User struct {
	ID        types.ID
	FullName  string
	PushToken string // empty when the user has no registered device
}

// Booking is immutable input to the dispatch core; the commerce subsystem
// creates it before dispatch begins.
type Booking struct {
	ID         types.ID
	UserID     types.ID
	Type       string
	Address    string
	TotalPrice int64
	CreatedAt  time.Time
}
