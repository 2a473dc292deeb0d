package interfaces

import (
	"context"

	"swiftride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripRequestRepository is the store contract for ride request documents.
// Subscriptions deliver snapshots at-least-once; updates to a single
// document arrive in commit order.
type TripRequestRepository interface {
	Create(ctx context.Context, trip *models.TripRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripRequest, error)

	// AcceptAtomically claims a pending request for a driver in a single
	// conditional write. It succeeds only if the document is still pending
	// with no driver assigned; a lost race returns ErrAlreadyClaimed.
	AcceptAtomically(ctx context.Context, id primitive.ObjectID, driverID string) (*models.TripRequest, error)

	// TransitionStatus applies from -> to only if the document still holds
	// the expected from status. Extra fields are set in the same write.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, extra map[string]interface{}) (*models.TripRequest, error)

	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error

	// History queries
	GetByCustomer(ctx context.Context, customerID string) ([]*models.TripRequest, error)
	GetByDriver(ctx context.Context, driverID string) ([]*models.TripRequest, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*models.TripRequest, error)

	// WatchPending streams the live set of pending requests: an initial
	// snapshot of every pending document, then every later write that
	// touches one. The channel closes when ctx is canceled.
	WatchPending(ctx context.Context) (<-chan models.TripEvent, error)

	// WatchRequest streams every write to a single request document.
	WatchRequest(ctx context.Context, id primitive.ObjectID) (<-chan models.TripEvent, error)
}
