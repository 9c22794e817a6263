// README: Realtime endpoint; upgrades to websocket and bridges frames into the tracking registry.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"zdeliver/internal/modules/tracking"
	"zdeliver/internal/types"
)

// RealtimeRegistry is the slice of the tracking registry the socket needs.
type RealtimeRegistry interface {
	Identify(conn tracking.Conn, role tracking.Role, partyID types.ID) error
	UpdateLocation(ctx context.Context, connID string, upd tracking.LocationUpdate) error
	JoinRoom(connID string, bookingID types.ID) error
	Disconnect(connID string)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 32
)

// wsConn adapts one websocket to tracking.Conn. Send never blocks: frames go
// through a buffered channel and a congested client loses frames instead of
// stalling the broadcast.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan tracking.Event
	done chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan tracking.Event, wsSendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ev tracking.Event) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		log.Printf("ws: dropping %s frame for slow connection %s", ev.Type, c.id)
	}
}

func (c *wsConn) writePump() {
	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

type wsInbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type identifyPayload struct {
	UserType string `json:"userType"`
	UserID   string `json:"userId"`
}

type locationPayload struct {
	BookingID string  `json:"bookingId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    string  `json:"status"`
}

type joinRoomPayload struct {
	BookingID string `json:"bookingId"`
}

type WSHandler struct {
	registry RealtimeRegistry
}

func NewWSHandler(registry RealtimeRegistry) *WSHandler {
	return &WSHandler{registry: registry}
}

func (h *WSHandler) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}
	conn := newWSConn(ws)
	go conn.writePump()

	defer func() {
		h.registry.Disconnect(conn.id)
		close(conn.done)
		_ = ws.Close()
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: connection %s read: %v", conn.id, err)
			}
			return
		}
		// The request context dies with the hijacked connection; frame
		// handling gets its own.
		h.handleFrame(context.Background(), conn, raw)
	}
}

func (h *WSHandler) handleFrame(ctx context.Context, conn *wsConn, raw []byte) {
	var in wsInbound
	if err := json.Unmarshal(raw, &in); err != nil {
		conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": "invalid frame"}})
		return
	}

	switch in.Type {
	case "identify":
		var p identifyPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": "invalid identify payload"}})
			return
		}
		if err := h.registry.Identify(conn, tracking.Role(p.UserType), types.ID(p.UserID)); err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": err.Error()}})
			return
		}
		conn.Send(tracking.Event{Type: "identified", Payload: gin.H{"userType": p.UserType, "userId": p.UserID}})

	case "location-update":
		var p locationPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": "invalid location payload"}})
			return
		}
		err := h.registry.UpdateLocation(ctx, conn.id, tracking.LocationUpdate{
			BookingID: types.ID(p.BookingID),
			Position:  types.Point{Lat: p.Lat, Lng: p.Lng},
			Status:    tracking.TravelStatus(p.Status),
		})
		if err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": err.Error()}})
		}

	case "join-room":
		var p joinRoomPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": "invalid join payload"}})
			return
		}
		if err := h.registry.JoinRoom(conn.id, types.ID(p.BookingID)); err != nil {
			conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": err.Error()}})
		}

	case "ping":
		conn.Send(tracking.Event{Type: "pong"})

	default:
		conn.Send(tracking.Event{Type: "error", Payload: gin.H{"error": "unknown event type"}})
	}
}
