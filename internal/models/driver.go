package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverPresence is one document per driver in the "drivers" collection,
// created lazily on the driver's first session and never deleted. A
// disconnected driver's location is stale and must not be served to
// customers.
type DriverPresence struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID    string             `json:"driver_id" bson:"driverId"`
	Location    GeoPoint           `json:"location" bson:"location"`
	IsConnected bool               `json:"is_connected" bson:"isConnected"`
	CreatedAt   time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updatedAt"`
}

// NearbyDriver is a presence row decorated with distance from a query point.
type NearbyDriver struct {
	DriverID       string   `json:"driver_id"`
	Location       GeoPoint `json:"location"`
	DistanceMeters float64  `json:"distance_meters"`
}
