// README: Tracking registry; injected session table with join, relay and reconnection semantics.
package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"zdeliver/internal/types"
)

var (
	ErrSessionNotFound     = errors.New("no tracking session for booking")
	ErrNotAssignedVendor   = errors.New("sender is not the assigned vendor for this booking")
	ErrInvalidTravelStatus = errors.New("invalid travel status")
	ErrUnidentified        = errors.New("connection has not identified itself")
)

type Role string

const (
	RoleVendor Role = "vendor"
	RoleUser   Role = "user"
)

// Event is the realtime wire envelope, {type, payload} on both directions.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn is one realtime connection. Send must not block: implementations queue
// or drop, because a dead recipient must never stall a broadcast.
type Conn interface {
	ID() string
	Send(ev Event)
}

// Estimator turns a vendor position and a destination into an ETA. Optional.
type Estimator interface {
	ETASeconds(ctx context.Context, from, to types.Point) (int, error)
}

type endpoint struct {
	conn    Conn
	role    Role
	partyID types.ID
}

type partyKey struct {
	role Role
	id   types.ID
}

// Registry is the process-wide session table. Its own lock only guards the
// maps; per-session mutation happens under each session's lock, so unrelated
// bookings never contend.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[types.ID]*Session
	endpoints map[string]*endpoint
	byParty   map[partyKey]string

	estimator  Estimator
	dormantTTL time.Duration
}

func NewRegistry(estimator Estimator, dormantTTL time.Duration) *Registry {
	if dormantTTL <= 0 {
		dormantTTL = 30 * time.Minute
	}
	return &Registry{
		sessions:   make(map[types.ID]*Session),
		endpoints:  make(map[string]*endpoint),
		byParty:    make(map[partyKey]string),
		estimator:  estimator,
		dormantTTL: dormantTTL,
	}
}

// Identify binds a connection to a vendor or user identity and auto-joins it
// to every open session where that party is assigned, so a reconnect resumes
// without a fresh dispatch.
func (r *Registry) Identify(conn Conn, role Role, partyID types.ID) error {
	if role != RoleVendor && role != RoleUser {
		return errors.New("userType must be vendor or user")
	}
	if partyID == "" {
		return errors.New("missing party id")
	}

	r.mu.Lock()
	r.endpoints[conn.ID()] = &endpoint{conn: conn, role: role, partyID: partyID}
	r.byParty[partyKey{role: role, id: partyID}] = conn.ID()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		if s.State == StateClosed {
			s.mu.Unlock()
			continue
		}
		joined := false
		switch {
		case role == RoleVendor && s.VendorID == partyID:
			s.members[conn.ID()] = conn
			s.vendorConnID = conn.ID()
			joined = true
		case role == RoleUser && s.UserID == partyID:
			s.members[conn.ID()] = conn
			s.userConnID = conn.ID()
			joined = true
		}
		if joined && s.State == StateDormant {
			s.State = StateActive
			s.DormantSince = time.Time{}
		}
		var last *LocationUpdate
		if joined && s.LastLocation != nil {
			loc := *s.LastLocation
			last = &loc
		}
		bookingID := s.BookingID
		s.mu.Unlock()

		if joined {
			conn.Send(Event{Type: "joined-order", Payload: map[string]any{
				"booking_id":    bookingID,
				"last_location": last,
			}})
		}
	}
	return nil
}

// ActivateSession creates (or revives) the session for an accepted booking and
// proactively joins whichever parties are already connected. Called by the
// dispatch engine after an acceptance commits.
func (r *Registry) ActivateSession(bookingID, vendorID, userID types.ID) {
	r.mu.Lock()
	s, ok := r.sessions[bookingID]
	if !ok {
		s = &Session{
			BookingID: bookingID,
			State:     StateUnassigned,
			members:   make(map[string]Conn),
		}
		r.sessions[bookingID] = s
	}
	vendorConn := r.connForLocked(RoleVendor, vendorID)
	userConn := r.connForLocked(RoleUser, userID)
	r.mu.Unlock()

	s.mu.Lock()
	s.VendorID = vendorID
	s.UserID = userID
	s.State = StateActive
	s.DormantSince = time.Time{}
	if vendorConn != nil {
		s.members[vendorConn.ID()] = vendorConn
		s.vendorConnID = vendorConn.ID()
	}
	if userConn != nil {
		s.members[userConn.ID()] = userConn
		s.userConnID = userConn.ID()
	}
	s.mu.Unlock()

	if vendorConn != nil {
		vendorConn.Send(Event{Type: "order-assigned", Payload: map[string]any{
			"booking_id": bookingID,
			"user_id":    userID,
		}})
	}
	if userConn != nil {
		userConn.Send(Event{Type: "joined-order", Payload: map[string]any{
			"booking_id": bookingID,
			"vendor_id":  vendorID,
		}})
	}
}

func (r *Registry) connForLocked(role Role, partyID types.ID) Conn {
	connID, ok := r.byParty[partyKey{role: role, id: partyID}]
	if !ok {
		return nil
	}
	ep, ok := r.endpoints[connID]
	if !ok {
		return nil
	}
	return ep.conn
}

// UpdateLocation ingests a position report. Only the connection identified as
// the session's assigned vendor may report; anything else is a spoof attempt
// and is rejected before any state changes.
func (r *Registry) UpdateLocation(ctx context.Context, connID string, upd LocationUpdate) error {
	if !ValidTravelStatus(upd.Status) {
		return ErrInvalidTravelStatus
	}
	if !upd.Position.Valid() {
		return errors.New("invalid coordinates")
	}

	r.mu.RLock()
	ep, identified := r.endpoints[connID]
	s, found := r.sessions[upd.BookingID]
	r.mu.RUnlock()

	if !identified {
		return ErrUnidentified
	}
	if !found {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	if s.State == StateClosed {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if ep.role != RoleVendor || ep.partyID != s.VendorID {
		s.mu.Unlock()
		return ErrNotAssignedVendor
	}

	upd.At = time.Now()
	if r.estimator != nil && s.Destination != nil {
		if secs, err := r.estimator.ETASeconds(ctx, upd.Position, *s.Destination); err == nil {
			upd.ETASeconds = &secs
		} else {
			log.Printf("tracking: eta for booking %s: %v", upd.BookingID, err)
		}
	}
	stored := upd
	s.LastLocation = &stored

	recipients := make([]Conn, 0, len(s.members))
	for id, c := range s.members {
		if id == connID {
			continue
		}
		recipients = append(recipients, c)
	}
	var sender Conn
	if c, ok := s.members[connID]; ok {
		sender = c
	} else {
		sender = ep.conn
	}
	s.mu.Unlock()

	for _, c := range recipients {
		c.Send(Event{Type: "location-update", Payload: upd})
	}
	sender.Send(Event{Type: "location-update-received", Payload: map[string]any{
		"booking_id": upd.BookingID,
		"status":     upd.Status,
	}})
	return nil
}

// JoinRoom is the legacy explicit join kept for older clients that do not
// identify. The connection receives broadcasts but can never report locations.
func (r *Registry) JoinRoom(connID string, bookingID types.ID) error {
	r.mu.RLock()
	ep, identified := r.endpoints[connID]
	s, found := r.sessions[bookingID]
	r.mu.RUnlock()

	if !found {
		return ErrSessionNotFound
	}

	var conn Conn
	if identified {
		conn = ep.conn
	}
	if conn == nil {
		return ErrUnidentified
	}

	s.mu.Lock()
	if s.State == StateClosed {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.members[connID] = conn
	s.mu.Unlock()

	conn.Send(Event{Type: "joined-order", Payload: map[string]any{"booking_id": bookingID}})
	return nil
}

// SetDestination attaches the delivery point so later updates carry an ETA.
func (r *Registry) SetDestination(bookingID types.ID, p types.Point) error {
	if !p.Valid() {
		return errors.New("invalid coordinates")
	}
	r.mu.RLock()
	s, ok := r.sessions[bookingID]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	s.Destination = &p
	s.mu.Unlock()
	return nil
}

// Disconnect drops a connection from every session it joined. Sessions are
// retained with their last-known location; a session with nobody left goes
// dormant until someone reconnects or the janitor reaps it.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	ep, ok := r.endpoints[connID]
	if ok {
		delete(r.endpoints, connID)
		key := partyKey{role: ep.role, id: ep.partyID}
		if r.byParty[key] == connID {
			delete(r.byParty, key)
		}
	}
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		if _, joined := s.members[connID]; joined {
			delete(s.members, connID)
			if s.vendorConnID == connID {
				s.vendorConnID = ""
			}
			if s.userConnID == connID {
				s.userConnID = ""
			}
			if len(s.members) == 0 && s.State == StateActive {
				s.State = StateDormant
				s.DormantSince = time.Now()
			}
		}
		s.mu.Unlock()
	}
}

// CloseSession is the terminal transition, fired by the completion webhook.
// Members are told the order finished and the session is forgotten.
func (r *Registry) CloseSession(bookingID types.ID) error {
	r.mu.Lock()
	s, ok := r.sessions[bookingID]
	if ok {
		delete(r.sessions, bookingID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.State = StateClosed
	members := make([]Conn, 0, len(s.members))
	for _, c := range s.members {
		members = append(members, c)
	}
	s.members = make(map[string]Conn)
	s.mu.Unlock()

	for _, c := range members {
		c.Send(Event{Type: "order-completed", Payload: map[string]any{"booking_id": bookingID}})
	}
	return nil
}

// RunJanitor reaps sessions that stayed dormant past the TTL. Blocks until
// ctx is canceled; run it in its own goroutine.
func (r *Registry) RunJanitor(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Minute
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.reapDormant(now)
		}
	}
}

func (r *Registry) reapDormant(now time.Time) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.mu.Lock()
		expired := s.State == StateDormant && !s.DormantSince.IsZero() && now.Sub(s.DormantSince) > r.dormantTTL
		bookingID := s.BookingID
		s.mu.Unlock()
		if expired {
			log.Printf("tracking: reaping dormant session for booking %s", bookingID)
			if err := r.CloseSession(bookingID); err != nil && !errors.Is(err, ErrSessionNotFound) {
				log.Printf("tracking: close dormant session %s: %v", bookingID, err)
			}
		}
	}
}

// Session returns a point-in-time copy of one session.
func (r *Registry) Session(bookingID types.ID) (*SessionView, error) {
	r.mu.RLock()
	s, ok := r.sessions[bookingID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	v := s.view()
	s.mu.Unlock()
	return &v, nil
}

// Sessions lists every live session, for the ops read endpoint.
func (r *Registry) Sessions() []SessionView {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, s.view())
		s.mu.Unlock()
	}
	return out
}
