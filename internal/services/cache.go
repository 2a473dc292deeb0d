package services

import (
	"context"
	"time"
)

// Cache is the subset of Redis operations the service and repository layers
// use: cache-aside for hot documents, per-driver declined-request sets, a
// geo index of connected drivers and pub/sub fanout of domain events.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key string, member string) (bool, error)
	SRem(ctx context.Context, key string, members ...string) error

	GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error
	GeoRemove(ctx context.Context, key, member string) error
	GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64) ([]string, error)

	Publish(ctx context.Context, channel string, payload interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
