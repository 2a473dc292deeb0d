package websocket

import (
	"context"
	"encoding/json"
	"testing"
)

func newTestClient(hub *Hub, userID, role string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		send:   make(chan []byte, 8),
		UserID: userID,
		Role:   role,
		rooms:  make(map[string]bool),
		ctx:    ctx,
		cancel: cancel,
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case payload := <-c.send:
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued")
		return Message{}
	}
}

func TestDriverAutoJoinsDriversRoom(t *testing.T) {
	hub := NewHub()
	driver := newTestClient(hub, "drv-1", "driver")
	customer := newTestClient(hub, "cust-1", "customer")
	hub.registerClient(driver)
	hub.registerClient(customer)

	hub.BroadcastToRoom(RoomDrivers, Message{Type: "trip.created"})

	if got := receive(t, driver); got.Type != "trip.created" {
		t.Fatalf("driver got %q, want trip.created", got.Type)
	}
	select {
	case <-customer.send:
		t.Fatal("customer received a drivers-room message")
	default:
	}
}

func TestBroadcastOnlyReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "a", "customer")
	b := newTestClient(hub, "b", "customer")
	hub.registerClient(a)
	hub.registerClient(b)

	room := TripRoom("64f000000000000000000001")
	hub.JoinRoom(a, room)

	hub.BroadcastToRoom(room, Message{Type: "trip.status"})

	if got := receive(t, a); got.Room != room {
		t.Fatalf("message room = %q, want %q", got.Room, room)
	}
	select {
	case <-b.send:
		t.Fatal("non-member received a room message")
	default:
	}
}

func TestRoomHooksFireOnFirstAndLast(t *testing.T) {
	hub := NewHub()
	var opened, closed []string
	hub.SetRoomHooks(
		func(room string) { opened = append(opened, room) },
		func(room string) { closed = append(closed, room) },
	)

	a := newTestClient(hub, "a", "customer")
	b := newTestClient(hub, "b", "customer")
	hub.registerClient(a)
	hub.registerClient(b)

	room := TripRoom("64f000000000000000000002")
	hub.JoinRoom(a, room)
	hub.JoinRoom(b, room)
	if len(opened) != 1 || opened[0] != room {
		t.Fatalf("opened = %v, want one open for %s", opened, room)
	}

	hub.LeaveRoom(a, room)
	if len(closed) != 0 {
		t.Fatalf("room closed while a member remains: %v", closed)
	}
	hub.LeaveRoom(b, room)
	if len(closed) != 1 || closed[0] != room {
		t.Fatalf("closed = %v, want one close for %s", closed, room)
	}
}

func TestUnregisterLeavesRoomsAndCancels(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "a", "driver")
	hub.registerClient(c)
	room := TripRoom("64f000000000000000000003")
	hub.JoinRoom(c, room)

	hub.unregisterClient(c)

	select {
	case <-c.Context().Done():
	default:
		t.Fatal("client context not canceled on unregister")
	}
	hub.mutex.RLock()
	_, stillThere := hub.rooms[room]
	hub.mutex.RUnlock()
	if stillThere {
		t.Fatal("room not cleaned up after last member unregistered")
	}

	// A fanout or feed that raced the unregister drops its message.
	if c.Send(Message{Type: "trip.status"}) {
		t.Fatal("send accepted after unregister")
	}
}

func TestBroadcastDoesNotRaceUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	room := TripRoom("64f000000000000000000004")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.BroadcastToRoom(room, Message{Type: "trip.status"})
		}
	}()

	for i := 0; i < 200; i++ {
		c := newTestClient(hub, "a", "customer")
		hub.registerClient(c)
		hub.JoinRoom(c, room)
		hub.unregisterClient(c)
	}
	<-done
}

func TestAllowedRoom(t *testing.T) {
	hub := NewHub()
	driver := newTestClient(hub, "drv", "driver")
	customer := newTestClient(hub, "cust", "customer")

	if !driver.allowedRoom(RoomDrivers) {
		t.Fatal("driver denied the drivers room")
	}
	if customer.allowedRoom(RoomDrivers) {
		t.Fatal("customer allowed into the drivers room")
	}
	if !driver.allowedRoom(DriverRoom("drv")) {
		t.Fatal("driver denied its own location room")
	}
	if customer.allowedRoom(DriverRoom("drv")) {
		t.Fatal("customer allowed into a driver location room without an authorizer")
	}
	if customer.allowedRoom("admin") {
		t.Fatal("arbitrary room allowed")
	}
}

func TestRoomAuthorizerGatesJoins(t *testing.T) {
	hub := NewHub()
	var asked []string
	hub.SetRoomAuthorizer(func(ctx context.Context, userID, role, room string) bool {
		asked = append(asked, room)
		return userID == "cust-on-trip"
	})

	party := newTestClient(hub, "cust-on-trip", "customer")
	stranger := newTestClient(hub, "cust-other", "customer")

	if !party.allowedRoom(TripRoom("64f000000000000000000005")) {
		t.Fatal("party denied its trip room")
	}
	if stranger.allowedRoom(TripRoom("64f000000000000000000005")) {
		t.Fatal("non-party allowed into a trip room")
	}
	if stranger.allowedRoom(DriverRoom("drv-1")) {
		t.Fatal("unmatched customer allowed into a driver room")
	}
	if len(asked) != 3 {
		t.Fatalf("authorizer consulted %d times, want 3", len(asked))
	}
	// The pending-request feed never goes through the authorizer.
	if stranger.allowedRoom(RoomDrivers) {
		t.Fatal("customer allowed into the drivers room")
	}
	if len(asked) != 3 {
		t.Fatal("authorizer consulted for the drivers room")
	}
}
