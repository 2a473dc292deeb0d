package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"swiftride/internal/middleware"
	"swiftride/internal/models"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"
	"swiftride/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const resubscribeDelay = 2 * time.Second

// WSHandler owns the realtime surface: it upgrades client connections,
// bridges the redis event channels onto hub rooms, and runs a change-stream
// watcher per active room so subscribers see store truth even when pub/sub
// drops a message. Every subscription loop resubscribes through the same
// runFeed helper.
type WSHandler struct {
	hub   *websocket.Hub
	cache services.Cache
	trips *services.TripService
	log   *logger.Logger

	mu       sync.Mutex
	watchers map[string]context.CancelFunc
	ctx      context.Context
}

// NewWSHandler wires the handler to the hub. ctx bounds every watcher the
// room hooks spawn; pass the server's run context so shutdown reaps them.
func NewWSHandler(ctx context.Context, hub *websocket.Hub, cache services.Cache, trips *services.TripService, log *logger.Logger) *WSHandler {
	h := &WSHandler{
		hub:      hub,
		cache:    cache,
		trips:    trips,
		log:      log,
		watchers: make(map[string]context.CancelFunc),
		ctx:      ctx,
	}
	hub.SetRoomHooks(h.roomOpened, h.roomClosed)
	hub.SetRoomAuthorizer(h.authorizeRoom)
	return h
}

// authorizeRoom admits only parties: a trip room is for the trip's customer
// and its assigned driver; a driver's location room is for that driver and
// the customer the driver is currently matched with.
func (h *WSHandler) authorizeRoom(ctx context.Context, userID, role, room string) bool {
	switch {
	case strings.HasPrefix(room, "trip_"):
		id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(room, "trip_"))
		if err != nil {
			return false
		}
		trip, err := h.trips.GetRequest(ctx, id)
		if err != nil {
			return false
		}
		return trip.IsParty(userID)

	case strings.HasPrefix(room, "driver_"):
		driverID := strings.TrimPrefix(room, "driver_")
		if userID == driverID {
			return true
		}
		trip, err := h.trips.ActiveRequest(ctx, userID)
		if err != nil || trip.DriverID == nil {
			return false
		}
		return *trip.DriverID == driverID
	}
	return false
}

// Handle upgrades an authenticated request to a websocket session. Drivers
// additionally get a private feed of pending requests, filtered by their own
// declines.
func (h *WSHandler) Handle(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	client, err := websocket.ServeWS(h.hub, c.Writer, c.Request, user.ID, string(user.Role))
	if err != nil {
		h.log.WithError(err).WithUserID(user.ID).Warn("websocket upgrade failed")
		return
	}

	if user.Role == models.RoleDriver {
		go h.feedPendingRequests(client)
	}
}

// Run starts the pub/sub bridges. Blocks until ctx is canceled.
func (h *WSHandler) Run(ctx context.Context) {
	go h.runFeed(ctx, "trip events", func(feedCtx context.Context) error {
		msgs, err := h.cache.Subscribe(feedCtx, services.TripEventsChannel)
		if err != nil {
			return err
		}
		for msg := range msgs {
			h.routeTripEvent(msg)
		}
		return nil
	})

	h.runFeed(ctx, "presence events", func(feedCtx context.Context) error {
		msgs, err := h.cache.Subscribe(feedCtx, services.PresenceEventsChannel)
		if err != nil {
			return err
		}
		for msg := range msgs {
			h.routePresenceEvent(msg)
		}
		return nil
	})
}

// runFeed drives one subscription until ctx ends, re-subscribing after a
// short delay whenever the feed errors or its upstream closes.
func (h *WSHandler) runFeed(ctx context.Context, name string, feed func(context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := feed(ctx); err != nil && ctx.Err() == nil {
			h.log.WithError(err).WithField("feed", name).Warn("feed failed, resubscribing")
		} else if ctx.Err() == nil {
			h.log.WithField("feed", name).Debug("feed closed, resubscribing")
		}
		select {
		case <-time.After(resubscribeDelay):
		case <-ctx.Done():
			return
		}
	}
}

// feedPendingRequests streams the live pending set to one driver client.
// The subscription restarts while the connection lives, so a driver who
// toggles online mid-session picks the feed up without reconnecting.
func (h *WSHandler) feedPendingRequests(client *websocket.Client) {
	h.runFeed(client.Context(), "pending requests", func(ctx context.Context) error {
		events, err := h.trips.SubscribePendingRequests(ctx, client.UserID)
		if err != nil {
			return err
		}
		for ev := range events {
			if ev.Err != nil {
				h.log.WithError(ev.Err).WithUserID(client.UserID).Debug("pending feed event error")
				continue
			}
			client.Send(websocket.Message{Type: "trip.pending", Data: ev.Trip})
		}
		return nil
	})
}

// roomOpened runs when a room gains its first member: trip and driver rooms
// get a change-stream watcher that broadcasts store truth into the room.
func (h *WSHandler) roomOpened(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watch := h.watcherFor(room)
	if watch == nil {
		return
	}
	ctx, cancel := context.WithCancel(h.ctx)
	h.watchers[room] = cancel
	go h.runFeed(ctx, "watch "+room, watch)
}

func (h *WSHandler) roomClosed(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.watchers[room]; ok {
		cancel()
		delete(h.watchers, room)
	}
}

func (h *WSHandler) watcherFor(room string) func(context.Context) error {
	switch {
	case strings.HasPrefix(room, "trip_"):
		id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(room, "trip_"))
		if err != nil {
			return nil
		}
		return func(ctx context.Context) error {
			events, err := h.trips.SubscribeRequestStatus(ctx, id)
			if err != nil {
				return err
			}
			for ev := range events {
				if ev.Err != nil || ev.Trip == nil {
					continue
				}
				h.hub.BroadcastToRoom(room, websocket.Message{Type: "trip.status", Data: ev.Trip})
			}
			return nil
		}

	case strings.HasPrefix(room, "driver_"):
		driverID := strings.TrimPrefix(room, "driver_")
		return func(ctx context.Context) error {
			events, err := h.trips.SubscribeDriverLocation(ctx, driverID)
			if err != nil {
				return err
			}
			for ev := range events {
				if ev.Err != nil || ev.Presence == nil {
					continue
				}
				h.hub.BroadcastToRoom(room, websocket.Message{Type: "driver.presence", Data: ev.Presence})
			}
			return nil
		}
	}
	return nil
}

func (h *WSHandler) routeTripEvent(raw []byte) {
	var event services.TripEventMessage
	if err := json.Unmarshal(raw, &event); err != nil || event.Trip == nil {
		h.log.WithError(err).Warn("dropping malformed trip event")
		return
	}

	msg := websocket.Message{Type: "trip." + event.Type, Data: event.Trip}
	h.hub.BroadcastToRoom(websocket.TripRoom(event.Trip.ID.Hex()), msg)

	// Pending-feed changes also fan out to every connected driver.
	switch event.Type {
	case "created", "accepted", "canceled":
		h.hub.BroadcastToRoom(websocket.RoomDrivers, msg)
	}
}

func (h *WSHandler) routePresenceEvent(raw []byte) {
	var event services.PresenceEventMessage
	if err := json.Unmarshal(raw, &event); err != nil || event.DriverID == "" {
		h.log.WithError(err).Warn("dropping malformed presence event")
		return
	}

	h.hub.BroadcastToRoom(websocket.DriverRoom(event.DriverID),
		websocket.Message{Type: "driver." + event.Type, Data: event})
}
