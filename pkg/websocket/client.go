package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID string
	Role   string
	rooms  map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is canceled when the client unregisters. Per-client feeds tie
// their lifetime to it.
func (c *Client) Context() context.Context { return c.ctx }

// Send queues a message for this client only. A full send buffer drops the
// message rather than blocking the caller.
func (c *Client) Send(msg Message) bool {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return false
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// clientCommand is what connected clients may ask for: joining or leaving a
// room, which is how they subscribe to a trip's status feed or a driver's
// location feed.
type clientCommand struct {
	Action string `json:"action"` // join, leave
	Room   string `json:"room"`
}

// ServeWS upgrades the connection and starts the client's pumps.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID, role string) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
		Role:   role,
		rooms:  make(map[string]bool),
		ctx:    ctx,
		cancel: cancel,
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
	return client, nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleCommand(message)
	}
}

func (c *Client) handleCommand(raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	if !c.allowedRoom(cmd.Room) {
		return
	}
	switch cmd.Action {
	case "join":
		c.hub.JoinRoom(c, cmd.Room)
	case "leave":
		c.hub.LeaveRoom(c, cmd.Room)
	}
}

// allowedRoom limits self-service joins. Only drivers sit on the
// pending-request feed; trip and driver rooms go through the hub's
// authorizer, which admits only parties to the trip. Without an authorizer a
// driver room admits only its own driver.
func (c *Client) allowedRoom(room string) bool {
	switch {
	case room == RoomDrivers:
		return c.Role == "driver"
	case strings.HasPrefix(room, roomTripPrefix), strings.HasPrefix(room, roomDriverPrefix):
		if c.hub.authorize != nil {
			return c.hub.authorize(c.ctx, c.UserID, c.Role, room)
		}
		if strings.HasPrefix(room, roomDriverPrefix) {
			return room == DriverRoom(c.UserID)
		}
		return true
	}
	return false
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
