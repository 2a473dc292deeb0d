package services

import (
	"context"
	"sort"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/logger"
)

const (
	driverGeoKey = "drivers:geo"

	// PresenceEventsChannel carries driver location and connectivity changes
	// for fanout to websocket subscribers.
	PresenceEventsChannel = "drivers.events"
)

// PresenceEventMessage is the pub/sub payload for a presence change.
type PresenceEventMessage struct {
	Type     string          `json:"type"`
	DriverID string          `json:"driverId"`
	Location models.GeoPoint `json:"location"`
}

// PresenceService manages driver connectivity and live location, mirroring
// connected drivers into a redis geo index for nearby queries.
type PresenceService struct {
	drivers interfaces.DriverPresenceRepository
	cache   Cache
	log     *logger.Logger
}

func NewPresenceService(drivers interfaces.DriverPresenceRepository, cache Cache, log *logger.Logger) *PresenceService {
	return &PresenceService{
		drivers: drivers,
		cache:   cache,
		log:     log,
	}
}

// SetConnected flips a driver's connectivity, creating the presence document
// on first session. Disconnecting removes the driver from the geo index so
// stale locations are never served.
func (s *PresenceService) SetConnected(ctx context.Context, driverID string, connected bool) (*models.DriverPresence, error) {
	presence, err := s.drivers.SetConnected(ctx, driverID, connected)
	if err != nil {
		return nil, err
	}

	if connected && !presence.Location.IsZero() {
		if err := s.cache.GeoAdd(ctx, driverGeoKey, driverID, presence.Location.Longitude, presence.Location.Latitude); err != nil {
			s.log.WithError(err).WithUserID(driverID).Warn("geo index add failed")
		}
	}
	if !connected {
		if err := s.cache.GeoRemove(ctx, driverGeoKey, driverID); err != nil {
			s.log.WithError(err).WithUserID(driverID).Warn("geo index remove failed")
		}
	}

	s.log.WithUserID(driverID).WithField("connected", connected).Info("driver presence updated")
	eventType := "disconnected"
	if connected {
		eventType = "connected"
	}
	s.publish(eventType, driverID, presence.Location)
	return presence, nil
}

// UpdateLocation stores a connected driver's position and refreshes the geo
// index.
func (s *PresenceService) UpdateLocation(ctx context.Context, driverID string, location models.GeoPoint) error {
	if !location.Valid() {
		return models.ErrBadDocument
	}
	if err := s.drivers.UpdateLocation(ctx, driverID, location); err != nil {
		return err
	}
	if err := s.cache.GeoAdd(ctx, driverGeoKey, driverID, location.Longitude, location.Latitude); err != nil {
		s.log.WithError(err).WithUserID(driverID).Warn("geo index update failed")
	}
	s.publish("location", driverID, location)
	return nil
}

func (s *PresenceService) publish(eventType, driverID string, location models.GeoPoint) {
	if s.cache == nil {
		return
	}
	// Best effort; the change stream remains the source of truth.
	err := s.cache.Publish(context.Background(), PresenceEventsChannel,
		PresenceEventMessage{Type: eventType, DriverID: driverID, Location: location})
	if err != nil {
		s.log.WithError(err).Warn("failed to publish presence event")
	}
}

func (s *PresenceService) GetPresence(ctx context.Context, driverID string) (*models.DriverPresence, error) {
	return s.drivers.GetByDriverID(ctx, driverID)
}

// NearbyDrivers lists connected drivers within radiusMeters of a point,
// nearest first. The geo index narrows the candidates; presence documents
// are the source of truth for connectivity. A cache outage degrades to a
// full scan of connected drivers.
func (s *PresenceService) NearbyDrivers(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyDriver, error) {
	candidateIDs, err := s.cache.GeoSearch(ctx, driverGeoKey, center.Longitude, center.Latitude, radiusMeters)
	if err != nil {
		s.log.WithError(err).Warn("geo search failed, falling back to scan")
		return s.nearbyByScan(ctx, center, radiusMeters)
	}

	var out []models.NearbyDriver
	for _, id := range candidateIDs {
		presence, err := s.drivers.GetByDriverID(ctx, id)
		if err != nil || !presence.IsConnected {
			continue
		}
		out = append(out, models.NearbyDriver{
			DriverID:       id,
			Location:       presence.Location,
			DistanceMeters: center.DistanceMeters(presence.Location),
		})
	}
	return out, nil
}

func (s *PresenceService) nearbyByScan(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyDriver, error) {
	connected, err := s.drivers.ListConnected(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.NearbyDriver
	for _, presence := range connected {
		if presence.Location.IsZero() {
			continue
		}
		d := center.DistanceMeters(presence.Location)
		if d <= radiusMeters {
			out = append(out, models.NearbyDriver{
				DriverID:       presence.DriverID,
				Location:       presence.Location,
				DistanceMeters: d,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}
