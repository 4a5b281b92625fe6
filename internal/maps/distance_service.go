// README: Google Maps Distance Matrix adapter for the distance resolver.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"careride/internal/modules/distance"
)

// DistanceService implements distance.MatrixProvider against the Google Maps
// Distance Matrix API.
type DistanceService struct {
	client *maps.Client
}

// NewDistanceService creates a DistanceService with the given API key.
func NewDistanceService(apiKey string) (*DistanceService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DistanceService{client: client}, nil
}

// Matrix resolves the full origins×destinations grid in one API call,
// assuming driving mode. Per-cell failures come back as OK=false rather than
// an error; the resolver decides what to do about them.
func (s *DistanceService) Matrix(ctx context.Context, origins, destinations []string) ([][]distance.Cell, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      origins,
		Destinations: destinations,
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsImperial,
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("distance matrix error: %w", err)
	}
	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("distance matrix returned %d rows for %d origins", len(resp.Rows), len(origins))
	}

	grid := make([][]distance.Cell, len(resp.Rows))
	for i, row := range resp.Rows {
		grid[i] = make([]distance.Cell, len(destinations))
		for j, el := range row.Elements {
			if j >= len(destinations) {
				break
			}
			if el.Status != "OK" {
				continue // zero Cell, OK=false
			}
			grid[i][j] = distance.Cell{
				OK:              true,
				Meters:          el.Distance.Meters,
				DurationSeconds: int(el.Duration.Seconds()),
				DistanceText:    el.Distance.HumanReadable,
				DurationText:    fmt.Sprintf("%.0f mins", el.Duration.Minutes()),
			}
		}
	}
	return grid, nil
}
