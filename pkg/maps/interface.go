package maps

import "context"

// RouteProvider resolves a route between two points. The trip core treats it
// as a pure function: polyline plus distance, or a route error.
type RouteProvider interface {
	GetRoute(ctx context.Context, from, to Point) (*Route, error)
}

// Point is a latitude/longitude pair in provider-neutral form.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Route struct {
	Polyline        []Point `json:"polyline"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
}
