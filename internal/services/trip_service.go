package services

import (
	"context"
	"errors"
	"fmt"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/logger"
	"swiftride/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// TripEventsChannel carries every trip state change for fanout to
	// websocket subscribers.
	TripEventsChannel = "trips.events"

	declinedSetPrefix = "driver:declined:"
)

// TripEventMessage is the pub/sub payload for a trip state change.
type TripEventMessage struct {
	Type string              `json:"type"`
	Trip *models.TripRequest `json:"trip"`
}

// TripService owns the trip request state machine: creation, the
// accept/complete/cancel protocol and the real-time subscriptions both sides
// ride on.
type TripService struct {
	trips   interfaces.TripRequestRepository
	drivers interfaces.DriverPresenceRepository
	routes  maps.RouteProvider
	cache   Cache
	log     *logger.Logger
}

func NewTripService(trips interfaces.TripRequestRepository, drivers interfaces.DriverPresenceRepository, routes maps.RouteProvider, cache Cache, log *logger.Logger) *TripService {
	return &TripService{
		trips:   trips,
		drivers: drivers,
		routes:  routes,
		cache:   cache,
		log:     log,
	}
}

// CreateRequest validates the route and persists a new pending request with
// no driver assigned.
func (s *TripService) CreateRequest(ctx context.Context, customerID string, pickup, destination models.GeoPoint, method models.PaymentMethod, fee int64) (*models.TripRequest, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("unknown payment method %q", method)
	}
	if fee < 0 {
		return nil, fmt.Errorf("fee must not be negative, got %d", fee)
	}

	if s.routes != nil {
		_, err := s.routes.GetRoute(ctx,
			maps.Point{Latitude: pickup.Latitude, Longitude: pickup.Longitude},
			maps.Point{Latitude: destination.Latitude, Longitude: destination.Longitude})
		if err != nil {
			s.log.WithError(err).Warn("route resolution failed")
			return nil, fmt.Errorf("pickup/destination unresolvable: %w", errors.Join(err, models.ErrInvalidRoute))
		}
	}

	trip := &models.TripRequest{
		CustomerID:    customerID,
		Pickup:        pickup,
		Destination:   destination,
		PaymentMethod: method,
		Fee:           fee,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.log.WithUserID(customerID).WithTripID(trip.ID.Hex()).Info("trip request created")
	s.publish("created", trip)
	return trip, nil
}

// AcceptRequest claims a pending request for a driver. Losing the race
// returns ErrAlreadyClaimed; the caller falls back to the waiting state
// rather than failing hard.
func (s *TripService) AcceptRequest(ctx context.Context, requestID primitive.ObjectID, driverID string) (*models.TripRequest, error) {
	trip, err := s.trips.AcceptAtomically(ctx, requestID, driverID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyClaimed) {
			s.log.WithUserID(driverID).WithTripID(requestID.Hex()).Info("accept lost race")
		}
		return nil, err
	}

	s.log.WithUserID(driverID).WithTripID(trip.ID.Hex()).Info("trip request accepted")
	s.publish("accepted", trip)
	return trip, nil
}

// DeclineRequest hides a pending request from one driver's feed. The
// document is untouched: the request stays visible to every other driver.
func (s *TripService) DeclineRequest(ctx context.Context, driverID string, requestID primitive.ObjectID) error {
	if err := s.cache.SAdd(ctx, declinedSetPrefix+driverID, requestID.Hex()); err != nil {
		return fmt.Errorf("failed to record decline: %w", errors.Join(err, models.ErrTransient))
	}
	return nil
}

// CompleteRequest transitions accepted -> completed and returns the payment
// terms snapshotted from the freshly read document, never from caller state.
// Only the assigned driver may complete.
func (s *TripService) CompleteRequest(ctx context.Context, requestID primitive.ObjectID, driverID string) (*models.FareSnapshot, error) {
	current, err := s.trips.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.DriverID == nil || *current.DriverID != driverID {
		return nil, fmt.Errorf("trip request %s is not assigned to driver %s: %w", requestID.Hex(), driverID, models.ErrNotParticipant)
	}

	trip, err := s.trips.TransitionStatus(ctx, requestID, models.TripStatusAccepted, models.TripStatusCompleted, nil)
	if err != nil {
		return nil, err
	}

	s.log.WithTripID(trip.ID.Hex()).Info("trip completed")
	s.publish("completed", trip)

	return &models.FareSnapshot{
		RequestID:     trip.ID.Hex(),
		CustomerID:    trip.CustomerID,
		DriverID:      *trip.DriverID,
		PaymentMethod: trip.PaymentMethod,
		Fee:           trip.Fee,
	}, nil
}

// CancelRequest cancels from pending or accepted; terminal statuses reject.
// Only the trip's customer or its assigned driver may cancel.
func (s *TripService) CancelRequest(ctx context.Context, requestID primitive.ObjectID, by models.CurrentUser) (*models.TripRequest, error) {
	current, err := s.trips.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.IsParty(by.ID) {
		return nil, fmt.Errorf("user %s on trip request %s: %w", by.ID, requestID.Hex(), models.ErrNotParticipant)
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("trip request %s is %s: %w", requestID.Hex(), current.Status, models.ErrTerminalStatus)
	}

	trip, err := s.trips.TransitionStatus(ctx, requestID, current.Status, models.TripStatusCanceled,
		map[string]interface{}{"canceledBy": string(by.Role)})
	if err != nil {
		return nil, err
	}

	s.log.WithTripID(trip.ID.Hex()).WithField("by", by.Role).Info("trip canceled")
	s.publish("canceled", trip)
	return trip, nil
}

func (s *TripService) GetRequest(ctx context.Context, requestID primitive.ObjectID) (*models.TripRequest, error) {
	return s.trips.GetByID(ctx, requestID)
}

func (s *TripService) ActiveRequest(ctx context.Context, customerID string) (*models.TripRequest, error) {
	return s.trips.GetActiveByCustomer(ctx, customerID)
}

// History returns a user's past trips, customer or driver side.
func (s *TripService) History(ctx context.Context, userID string, role models.UserRole) ([]*models.TripRequest, error) {
	if role == models.RoleDriver {
		return s.trips.GetByDriver(ctx, userID)
	}
	return s.trips.GetByCustomer(ctx, userID)
}

// SubscribePendingRequests yields the live set of pending requests for a
// connected driver, skipping requests the driver has declined. Events arrive
// on a single channel consumed in order.
func (s *TripService) SubscribePendingRequests(ctx context.Context, driverID string) (<-chan models.TripEvent, error) {
	presence, err := s.drivers.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !presence.IsConnected {
		return nil, fmt.Errorf("driver %s: %w", driverID, models.ErrDriverOffline)
	}

	upstream, err := s.trips.WatchPending(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan models.TripEvent, watchBuffer)
	go func() {
		defer close(out)
		for ev := range upstream {
			if ev.Trip != nil && ev.Trip.Status == models.TripStatusPending {
				declined, derr := s.cache.SIsMember(ctx, declinedSetPrefix+driverID, ev.Trip.ID.Hex())
				if derr != nil {
					// Cache down: show the request rather than hide it.
					s.log.WithError(derr).Warn("declined-set lookup failed")
				} else if declined {
					continue
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscribeRequestStatus streams status changes for one request. The caller
// owns cancellation and re-subscription when its request id changes.
func (s *TripService) SubscribeRequestStatus(ctx context.Context, requestID primitive.ObjectID) (<-chan models.TripEvent, error) {
	return s.trips.WatchRequest(ctx, requestID)
}

// SubscribeDriverLocation streams the assigned driver's live position.
func (s *TripService) SubscribeDriverLocation(ctx context.Context, driverID string) (<-chan models.PresenceEvent, error) {
	return s.drivers.WatchDriver(ctx, driverID)
}

func (s *TripService) publish(eventType string, trip *models.TripRequest) {
	if s.cache == nil {
		return
	}
	// Fanout is best effort; change streams remain the source of truth.
	err := s.cache.Publish(context.Background(), TripEventsChannel, TripEventMessage{Type: eventType, Trip: trip})
	if err != nil {
		s.log.WithError(err).Warn("failed to publish trip event")
	}
}

const watchBuffer = 16
