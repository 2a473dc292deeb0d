package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Room names. Drivers share a feed of pending requests; each trip and each
// driver's live location get their own room.
const (
	RoomDrivers = "drivers"

	roomTripPrefix   = "trip_"
	roomDriverPrefix = "driver_"
)

func TripRoom(tripID string) string     { return roomTripPrefix + tripID }
func DriverRoom(driverID string) string { return roomDriverPrefix + driverID }

type Message struct {
	Type      string      `json:"type"`
	Room      string      `json:"room,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex

	// Room lifecycle hooks, fired when a room gains its first member and
	// when it loses its last. Hooks run under the hub lock and must only
	// spawn work, never call back into the hub synchronously.
	onRoomOpen  func(room string)
	onRoomClose func(room string)

	// authorize gates self-service joins to trip and driver rooms. The ctx
	// is the joining client's; it ends when the client disconnects.
	authorize func(ctx context.Context, userID, role, room string) bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// SetRoomHooks installs the room lifecycle callbacks. Must be called before
// Run.
func (h *Hub) SetRoomHooks(onOpen, onClose func(room string)) {
	h.onRoomOpen = onOpen
	h.onRoomClose = onClose
}

// SetRoomAuthorizer installs the join gate for trip and driver rooms. Must be
// called before Run.
func (h *Hub) SetRoomAuthorizer(authorize func(ctx context.Context, userID, role, room string) bool) {
	h.authorize = authorize
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if client.Role == "driver" {
		h.joinRoomLocked(client, RoomDrivers)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		h.leaveRoomLocked(client, room)
	}
	// The send channel stays open; canceling the context stops the pumps
	// and makes concurrent fanouts drop instead of writing to a dead client.
	client.cancel()
}

func (h *Hub) JoinRoom(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoomLocked(client, room)
}

func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.leaveRoomLocked(client, room)
}

func (h *Hub) joinRoomLocked(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
		if h.onRoomOpen != nil {
			h.onRoomOpen(room)
		}
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

func (h *Hub) leaveRoomLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
			if h.onRoomClose != nil {
				h.onRoomClose(room)
			}
		}
	}
	delete(client.rooms, room)
}

// BroadcastToRoom sends a message to every member of a room. Slow clients
// are dropped rather than allowed to block the fanout.
func (h *Hub) BroadcastToRoom(room string, msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	msg.Room = room

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mutex.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	h.mutex.RUnlock()

	for _, client := range members {
		select {
		case <-client.ctx.Done():
		case client.send <- payload:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}
