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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type driverPresenceRepository struct {
	collection *mongo.Collection
	cache      services.Cache
}

func NewDriverPresenceRepository(db *mongo.Database, cache services.Cache) interfaces.DriverPresenceRepository {
	return &driverPresenceRepository{
		collection: db.Collection("drivers"),
		cache:      cache,
	}
}

func (r *driverPresenceRepository) GetByDriverID(ctx context.Context, driverID string) (*models.DriverPresence, error) {
	var presence models.DriverPresence
	err := r.collection.FindOne(ctx, bson.M{"driverId": driverID}).Decode(&presence)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("driver %s: %w", driverID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get driver presence: %w", err)
	}
	return &presence, nil
}

// SetConnected flips connectivity, creating the presence document lazily on
// the driver's first session.
func (r *driverPresenceRepository) SetConnected(ctx context.Context, driverID string, connected bool) (*models.DriverPresence, error) {
	now := time.Now()
	var presence models.DriverPresence
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"driverId": driverID},
		bson.M{
			"$set":         bson.M{"isConnected": connected, "updatedAt": now},
			"$setOnInsert": bson.M{"driverId": driverID, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&presence)
	if err != nil {
		return nil, fmt.Errorf("failed to set driver connectivity: %w", err)
	}
	return &presence, nil
}

// UpdateLocation writes a new location for a connected driver. Location
// updates for disconnected drivers are rejected: their position is stale by
// contract.
func (r *driverPresenceRepository) UpdateLocation(ctx context.Context, driverID string, location models.GeoPoint) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"driverId": driverID, "isConnected": true},
		bson.M{"$set": bson.M{"location": location, "updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to update driver location: %w", err)
	}
	if res.MatchedCount == 0 {
		count, cerr := r.collection.CountDocuments(ctx, bson.M{"driverId": driverID})
		if cerr != nil {
			return fmt.Errorf("failed to update driver location: %w", cerr)
		}
		if count == 0 {
			return fmt.Errorf("driver %s: %w", driverID, models.ErrNotFound)
		}
		return fmt.Errorf("driver %s: %w", driverID, models.ErrDriverOffline)
	}
	return nil
}

func (r *driverPresenceRepository) ListConnected(ctx context.Context) ([]*models.DriverPresence, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"isConnected": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list connected drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.DriverPresence
	for cursor.Next(ctx) {
		var presence models.DriverPresence
		if err := cursor.Decode(&presence); err != nil {
			return nil, fmt.Errorf("failed to decode driver presence: %w", err)
		}
		drivers = append(drivers, &presence)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("driver presence cursor: %w", err)
	}
	return drivers, nil
}

// WatchDriver streams writes to a single driver's presence document,
// starting with its current state if it exists.
func (r *driverPresenceRepository) WatchDriver(ctx context.Context, driverID string) (<-chan models.PresenceEvent, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"fullDocument.driverId": driverID}}},
	}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to open driver watch: %w", err)
	}

	events := make(chan models.PresenceEvent, watchEventBuffer)
	go func() {
		defer close(events)
		defer stream.Close(context.Background())

		if presence, err := r.GetByDriverID(ctx, driverID); err == nil {
			select {
			case events <- models.PresenceEvent{Presence: presence}:
			case <-ctx.Done():
				return
			}
		} else if !errors.Is(err, models.ErrNotFound) {
			select {
			case events <- models.PresenceEvent{Err: errors.Join(err, models.ErrTransient)}:
			case <-ctx.Done():
				return
			}
		}

		for stream.Next(ctx) {
			var change struct {
				FullDocument models.DriverPresence `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				select {
				case events <- models.PresenceEvent{Err: fmt.Errorf("decode change: %w", errors.Join(err, models.ErrTransient))}:
				case <-ctx.Done():
					return
				}
				continue
			}
			presence := change.FullDocument
			select {
			case events <- models.PresenceEvent{Presence: &presence}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			select {
			case events <- models.PresenceEvent{Err: fmt.Errorf("change stream: %w", errors.Join(err, models.ErrTransient))}:
			case <-ctx.Done():
			}
		}
	}()
	return events, nil
}
