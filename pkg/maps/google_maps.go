package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &GoogleMapsProvider{client: client}, nil
}

func (g *GoogleMapsProvider) GetRoute(ctx context.Context, from, to Point) (*Route, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Latitude, from.Longitude),
		Destination: fmt.Sprintf("%f,%f", to.Latitude, to.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("no route between origin and destination")
	}

	best := routes[0]
	coords, err := best.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	polyline := make([]Point, len(coords))
	for i, c := range coords {
		polyline[i] = Point{Latitude: c.Lat, Longitude: c.Lng}
	}

	var distance float64
	var duration int
	for _, leg := range best.Legs {
		distance += float64(leg.Distance.Meters)
		duration += int(leg.Duration.Seconds())
	}

	return &Route{
		Polyline:        polyline,
		DistanceMeters:  distance,
		DurationSeconds: duration,
	}, nil
}
