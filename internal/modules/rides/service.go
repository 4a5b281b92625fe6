// README: Ride service; scores the open board for a driver and handles claims.
package rides

import (
	"context"
	"errors"

	"careride/internal/modules/acceptance"
	"careride/internal/types"
)

var (
	ErrNotFound   = errors.New("ride or driver not found")
	ErrConflict   = errors.New("ride already claimed")
	ErrBadRequest = errors.New("bad request")
)

// Scorer is the service's view of the acceptance engine.
type Scorer interface {
	ProcessBatch(ctx context.Context, rides []acceptance.Ride, driver acceptance.Driver) acceptance.BatchResult
}

type Service struct {
	store  *Store
	engine Scorer
}

func NewService(store *Store, engine Scorer) *Service {
	return &Service{store: store, engine: engine}
}

// ScoredRide pairs a stored ride with its acceptance score for the listing.
type ScoredRide struct {
	Ride       Ride             `json:"ride"`
	Acceptance acceptance.Score `json:"acceptance"`
}

// Board is the open-ride list as one driver sees it: ranked, annotated,
// summarized.
type Board struct {
	Rides   []ScoredRide       `json:"rides"`
	Summary acceptance.Summary `json:"summary"`
}

// BoardForDriver loads the open rides and ranks them for the given driver.
// Scoring never fails outright: a degraded board beats an empty one.
func (s *Service) BoardForDriver(ctx context.Context, driverID types.ID) (*Board, error) {
	if driverID == "" {
		return nil, ErrBadRequest
	}
	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]acceptance.Ride, len(open))
	byID := make(map[types.ID]*Ride, len(open))
	for i := range open {
		candidates[i] = open[i].Candidate()
		byID[open[i].ID] = &open[i]
	}

	result := s.engine.ProcessBatch(ctx, candidates, driver.Profile())

	scored := make([]ScoredRide, 0, len(result.Scores))
	for _, sc := range result.Scores {
		r, ok := byID[sc.RideID]
		if !ok {
			continue
		}
		scored = append(scored, ScoredRide{Ride: *r, Acceptance: sc})
	}
	return &Board{Rides: scored, Summary: result.Summary}, nil
}

// Claim takes an open ride for the driver. Losing a race surfaces as
// ErrConflict, not an error state.
func (s *Service) Claim(ctx context.Context, rideID, driverID types.ID) error {
	if rideID == "" || driverID == "" {
		return ErrBadRequest
	}
	if _, err := s.store.GetDriver(ctx, driverID); err != nil {
		return err
	}
	ok, err := s.store.Claim(ctx, rideID, driverID)
	if err != nil {
		return err
	}
	if !ok {
		// Either the ride does not exist or someone claimed it first.
		if _, err := s.store.GetRide(ctx, rideID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}
