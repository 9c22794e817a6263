package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"zdeliver/internal/types"
)

// ETAService handles interactions with Google Maps API.
type ETAService struct {
	client *maps.Client
}

// NewETAService creates a new ETAService with the given API Key.
func NewETAService(apiKey string) (*ETAService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &ETAService{client: client}, nil
}

// ETASeconds returns the driving duration in seconds from origin to
// destination, used to enrich tracking location updates.
func (s *ETAService) ETASeconds(ctx context.Context, from, to types.Point) (int, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}

	return int(routes[0].Legs[0].Duration.Seconds()), nil
}
