package distance

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// matrixClient is the part of the Google Maps client the provider calls
type matrixClient interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// GoogleMatrix measures road distance with the Distance Matrix API
type GoogleMatrix struct {
	client matrixClient
	mode   maps.Mode
}

// NewGoogleMatrix creates a provider for the given API key and travel mode
func NewGoogleMatrix(apiKey, mode string) (*GoogleMatrix, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newGoogleMatrix(client, mode), nil
}

func newGoogleMatrix(client matrixClient, mode string) *GoogleMatrix {
	m := maps.TravelModeDriving
	if mode != "" {
		m = maps.Mode(mode)
	}
	return &GoogleMatrix{client: client, mode: m}
}

// RoadDistance returns the metres between origin and destination. found is
// false when Google has no route; that is an answer, not a failure.
func (g *GoogleMatrix) RoadDistance(ctx context.Context, origin, destination string) (meters int, found bool, err error) {
	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Mode:         g.mode,
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return 0, false, fmt.Errorf("distance matrix request failed: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, false, nil
	}
	element := resp.Rows[0].Elements[0]
	switch element.Status {
	case "OK":
		return element.Distance.Meters, true, nil
	case "NOT_FOUND", "ZERO_RESULTS":
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("distance matrix element status %s", element.Status)
	}
}
