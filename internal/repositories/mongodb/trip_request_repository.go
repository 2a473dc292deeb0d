package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tripCacheTTL     = 5 * time.Minute
	watchEventBuffer = 16
)

type tripRequestRepository struct {
	collection *mongo.Collection
	cache      services.Cache
}

func NewTripRequestRepository(db *mongo.Database, cache services.Cache) interfaces.TripRequestRepository {
	return &tripRequestRepository{
		collection: db.Collection("requests"),
		cache:      cache,
	}
}

func (r *tripRequestRepository) Create(ctx context.Context, trip *models.TripRequest) error {
	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusPending
	trip.DriverID = nil
	trip.PaymentStatus = models.PaymentStatusPending
	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	if err := trip.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, trip); err != nil {
		return fmt.Errorf("failed to create trip request: %w", err)
	}

	r.cacheTrip(ctx, trip)
	return nil
}

func (r *tripRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripRequest, error) {
	if trip := r.tripFromCache(ctx, id.Hex()); trip != nil {
		return trip, nil
	}

	var trip models.TripRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip request: %w", err)
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}

	if !trip.Status.IsTerminal() {
		r.cacheTrip(ctx, &trip)
	}
	return &trip, nil
}

// AcceptAtomically is the sole path from pending to accepted. The status and
// driver checks ride in the filter of a single FindOneAndUpdate, so two
// drivers racing for the same request serialize at the store and exactly one
// write matches.
func (r *tripRequestRepository) AcceptAtomically(ctx context.Context, id primitive.ObjectID, driverID string) (*models.TripRequest, error) {
	filter := bson.M{
		"_id":      id,
		"status":   models.TripStatusPending,
		"driverId": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":    models.TripStatusAccepted,
		"driverId":  driverID,
		"updatedAt": time.Now(),
	}}

	var trip models.TripRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&trip)
	if err == nil {
		r.cacheTrip(ctx, &trip)
		return &trip, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to accept trip request: %w", err)
	}

	// The conditional write missed: either someone else claimed the request
	// or it never existed.
	count, cerr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, fmt.Errorf("failed to accept trip request: %w", cerr)
	}
	if count == 0 {
		return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrAlreadyClaimed)
}

// TransitionStatus applies from -> to as a conditional write on the expected
// current status.
func (r *tripRequestRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, extra map[string]interface{}) (*models.TripRequest, error) {
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("transition %s -> %s not allowed", from, to)
	}

	set := bson.M{"status": to, "updatedAt": time.Now()}
	for k, v := range extra {
		set[k] = v
	}

	var trip models.TripRequest
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&trip)
	if err == nil {
		r.invalidateTrip(ctx, id.Hex())
		if !trip.Status.IsTerminal() {
			r.cacheTrip(ctx, &trip)
		}
		return &trip, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition trip request: %w", err)
	}

	current, gerr := r.GetByID(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("trip request %s is %s: %w", id.Hex(), current.Status, models.ErrTerminalStatus)
	}
	return nil, fmt.Errorf("trip request %s is %s, expected %s", id.Hex(), current.Status, from)
}

func (r *tripRequestRepository) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentStatus": status, "updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	r.invalidateTrip(ctx, id.Hex())
	return nil
}

func (r *tripRequestRepository) GetByCustomer(ctx context.Context, customerID string) ([]*models.TripRequest, error) {
	return r.find(ctx, bson.M{"customerId": customerID})
}

func (r *tripRequestRepository) GetByDriver(ctx context.Context, driverID string) ([]*models.TripRequest, error) {
	return r.find(ctx, bson.M{"driverId": driverID})
}

func (r *tripRequestRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*models.TripRequest, error) {
	var trip models.TripRequest
	err := r.collection.FindOne(ctx, bson.M{
		"customerId": customerID,
		"status":     bson.M{"$in": []models.TripStatus{models.TripStatusPending, models.TripStatusAccepted}},
	}, options.FindOne().SetSort(bson.M{"createdAt": -1})).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("no active trip for customer %s: %w", customerID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRequestRepository) find(ctx context.Context, filter bson.M) ([]*models.TripRequest, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query trip requests: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.TripRequest
	for cursor.Next(ctx) {
		var trip models.TripRequest
		if err := cursor.Decode(&trip); err != nil {
			return nil, fmt.Errorf("failed to decode trip request: %w", err)
		}
		if err := trip.Validate(); err != nil {
			return nil, err
		}
		trips = append(trips, &trip)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("trip request cursor: %w", err)
	}
	return trips, nil
}

// WatchPending emits an initial snapshot of every pending request, then every
// later write to the collection. Consumers drop a request from their live set
// when a snapshot arrives with a non-pending status.
func (r *tripRequestRepository) WatchPending(ctx context.Context) (<-chan models.TripEvent, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": []string{"insert", "update", "replace"}},
		}}},
	}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to open pending watch: %w", err)
	}

	events := make(chan models.TripEvent, watchEventBuffer)
	go func() {
		defer close(events)
		defer stream.Close(context.Background())

		// Snapshot after the stream is open so no write falls in the gap.
		pending, err := r.find(ctx, bson.M{"status": models.TripStatusPending})
		if err != nil {
			r.deliver(ctx, events, models.TripEvent{Err: fmt.Errorf("pending snapshot: %w", errors.Join(err, models.ErrTransient))})
		}
		for _, trip := range pending {
			if !r.deliver(ctx, events, models.TripEvent{Trip: trip}) {
				return
			}
		}

		r.pump(ctx, stream, events)
	}()
	return events, nil
}

// WatchRequest streams every write to a single request document, starting
// with its current state.
func (r *tripRequestRepository) WatchRequest(ctx context.Context, id primitive.ObjectID) (<-chan models.TripEvent, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": id}}},
	}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to open request watch: %w", err)
	}

	events := make(chan models.TripEvent, watchEventBuffer)
	go func() {
		defer close(events)
		defer stream.Close(context.Background())

		if trip, err := r.GetByID(ctx, id); err == nil {
			if !r.deliver(ctx, events, models.TripEvent{Trip: trip}) {
				return
			}
		} else if !errors.Is(err, models.ErrNotFound) {
			r.deliver(ctx, events, models.TripEvent{Err: errors.Join(err, models.ErrTransient)})
		}

		r.pump(ctx, stream, events)
	}()
	return events, nil
}

func (r *tripRequestRepository) pump(ctx context.Context, stream *mongo.ChangeStream, events chan<- models.TripEvent) {
	for stream.Next(ctx) {
		var change struct {
			OperationType string             `bson:"operationType"`
			FullDocument  models.TripRequest `bson:"fullDocument"`
		}
		if err := stream.Decode(&change); err != nil {
			if !r.deliver(ctx, events, models.TripEvent{Err: fmt.Errorf("decode change: %w", errors.Join(err, models.ErrTransient))}) {
				return
			}
			continue
		}
		if change.OperationType == "delete" {
			continue
		}
		trip := change.FullDocument
		if err := trip.Validate(); err != nil {
			if !r.deliver(ctx, events, models.TripEvent{Err: err}) {
				return
			}
			continue
		}
		if !r.deliver(ctx, events, models.TripEvent{Trip: &trip}) {
			return
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		r.deliver(ctx, events, models.TripEvent{Err: fmt.Errorf("change stream: %w", errors.Join(err, models.ErrTransient))})
	}
}

func (r *tripRequestRepository) deliver(ctx context.Context, events chan<- models.TripEvent, ev models.TripEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *tripRequestRepository) cacheTrip(ctx context.Context, trip *models.TripRequest) {
	if r.cache == nil {
		return
	}
	// Best effort: a cache miss only costs a store read.
	_ = r.cache.Set(ctx, "trip:"+trip.ID.Hex(), trip, tripCacheTTL)
}

func (r *tripRequestRepository) tripFromCache(ctx context.Context, id string) *models.TripRequest {
	if r.cache == nil {
		return nil
	}
	var trip models.TripRequest
	if err := r.cache.Get(ctx, "trip:"+id, &trip); err != nil {
		return nil
	}
	if trip.Validate() != nil {
		return nil
	}
	return &trip
}

func (r *tripRequestRepository) invalidateTrip(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, "trip:"+id)
}
