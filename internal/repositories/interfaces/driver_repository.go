package interfaces

import (
	"context"

	"swiftride/internal/models"
)

// DriverPresenceRepository is the store contract for driver connectivity and
// location documents, one per driver, created lazily and never deleted.
type DriverPresenceRepository interface {
	GetByDriverID(ctx context.Context, driverID string) (*models.DriverPresence, error)

	// SetConnected flips connectivity, creating the presence document on a
	// driver's first session.
	SetConnected(ctx context.Context, driverID string, connected bool) (*models.DriverPresence, error)

	// UpdateLocation stores a new location for a connected driver.
	UpdateLocation(ctx context.Context, driverID string, location models.GeoPoint) error

	ListConnected(ctx context.Context) ([]*models.DriverPresence, error)

	// WatchDriver streams writes to one driver's presence document.
	WatchDriver(ctx context.Context, driverID string) (<-chan models.PresenceEvent, error)
}
