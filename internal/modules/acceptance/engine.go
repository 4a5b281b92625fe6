// README: Acceptance engine; combines factor scores into a ranked 0–100 list.
package acceptance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"careride/internal/config"
	"careride/internal/modules/distance"
)

// failedRank marks rides whose scoring panicked; they trail the ranked list.
const failedRank = 999

// DistanceResolver is the engine's view of the distance module.
type DistanceResolver interface {
	Resolve(ctx context.Context, origin, destination string) (distance.Result, error)
	ResolveBatch(ctx context.Context, reqs []distance.Request) []distance.Result
}

// Engine scores candidate rides for a driver. Scoring is arithmetic over the
// five factors; the only I/O is distance resolution, which the batch path
// collapses into a single lookup for the whole candidate set.
type Engine struct {
	resolver DistanceResolver
	cfg      config.ScoringConfig
	now      func() time.Time
}

func NewEngine(resolver DistanceResolver, cfg config.ScoringConfig) *Engine {
	return &Engine{resolver: resolver, cfg: cfg, now: time.Now}
}

// ScoreRide scores a single ride, resolving its distance on the spot. Batch
// callers should use ProcessBatch instead so distances resolve in one call.
func (e *Engine) ScoreRide(ctx context.Context, ride Ride, driver Driver) Score {
	var res *distance.Result
	if driver.Address != "" && ride.PickupLocation != "" {
		if r, err := e.resolver.Resolve(ctx, driver.Address, ride.PickupLocation); err == nil {
			res = &r
		}
	}
	return e.scoreWithDistance(ride, driver, res)
}

// scoreWithDistance combines the five factors using the configured weights.
// Weights need not total 1: the final scaling divides by their sum, so only
// the relative weight of each factor matters. The clamp stays as a guard and
// the 0–100 figure is ordinal, not a calibrated percentage.
func (e *Engine) scoreWithDistance(ride Ride, driver Driver, res *distance.Result) Score {
	now := e.now()
	f := Factors{
		Distance:  scoreDistance(ride, driver, res, e.cfg.MaxDistanceMiles),
		Time:      scoreTiming(ride, now),
		Urgency:   scoreUrgency(ride),
		TimeOfDay: scoreTimeOfDay(ride, driver),
		DayOfWeek: scoreDayOfWeek(ride, driver, now),
	}

	w := e.cfg.Weights
	raw := f.Distance.Score*w.Distance +
		f.Time.Score*w.Time +
		f.Urgency.Score*w.Urgency +
		f.TimeOfDay.Score*w.TimeOfDay +
		f.DayOfWeek.Score*w.DayOfWeek
	totalWeight := w.Distance + w.Time + w.Urgency + w.TimeOfDay + w.DayOfWeek

	var final float64
	if totalWeight > 0 {
		final = clamp(raw/totalWeight*100, 0, 100)
	}

	return Score{
		RideID:   ride.ID,
		Score:    final,
		Eligible: f.Distance.WithinRange,
		Reason:   buildReason(f),
		Factors:  f,
	}
}

// buildReason buckets the ride by the plain sum of its five factor scores
// (0..5) and appends the rationales a driver actually weighs when deciding.
func buildReason(f Factors) string {
	sum := f.Distance.Score + f.Time.Score + f.Urgency.Score + f.TimeOfDay.Score + f.DayOfWeek.Score
	var quality string
	switch {
	case sum > 2.5:
		quality = "Excellent"
	case sum > 2.0:
		quality = "Good"
	case sum > 1.5:
		quality = "Fair"
	default:
		quality = "Poor"
	}
	return fmt.Sprintf("%s match: %s; %s; %s",
		quality, f.Distance.Reason, f.TimeOfDay.Reason, f.DayOfWeek.Reason)
}

// ProcessBatch scores every candidate ride for one driver and returns them
// ranked. Distances for the whole batch resolve through one batched lookup.
// A driver without an address short-circuits to an all-zero result; a panic
// while scoring one ride demotes that ride without aborting the rest.
func (e *Engine) ProcessBatch(ctx context.Context, rides []Ride, driver Driver) BatchResult {
	if driver.Address == "" {
		scores := make([]Score, len(rides))
		for i, ride := range rides {
			scores[i] = Score{
				RideID: ride.ID,
				Rank:   i + 1,
				Reason: "Driver address not available",
			}
		}
		return BatchResult{Scores: scores, Summary: summarize(scores)}
	}

	// One distance request per ride with a pickup location, resolved in a
	// single batch so the external call count stays O(unique addresses).
	reqs := make([]distance.Request, 0, len(rides))
	reqIdx := make(map[int]int, len(rides)) // ride index → request index
	for i, ride := range rides {
		if ride.PickupLocation == "" {
			continue
		}
		reqIdx[i] = len(reqs)
		reqs = append(reqs, distance.Request{Origin: driver.Address, Destination: ride.PickupLocation})
	}
	resolved := e.resolver.ResolveBatch(ctx, reqs)

	scored := make([]Score, 0, len(rides))
	var failed []Score
	for i, ride := range rides {
		var res *distance.Result
		if j, ok := reqIdx[i]; ok {
			res = &resolved[j]
		}
		s, ok := e.scoreSafely(ride, driver, res)
		if !ok {
			failed = append(failed, s)
			continue
		}
		scored = append(scored, s)
	}

	// Eligible rides rank above ineligible ones even when an ineligible
	// ride's other factors add up higher; ties keep input order.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Eligible != scored[j].Eligible {
			return scored[i].Eligible
		}
		return scored[i].Score > scored[j].Score
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	scored = append(scored, failed...)

	return BatchResult{Scores: scored, Summary: summarize(scored)}
}

// scoreSafely demotes a panicking ride to a worst-case score instead of
// letting one bad record abort the batch.
func (e *Engine) scoreSafely(ride Ride, driver Driver, res *distance.Result) (s Score, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("acceptance: scoring ride %s panicked: %v", ride.ID, r)
			s = Score{
				RideID: ride.ID,
				Rank:   failedRank,
				Reason: "Unable to calculate acceptance score",
			}
			ok = false
		}
	}()
	return e.scoreWithDistance(ride, driver, res), true
}

func summarize(scores []Score) Summary {
	sum := Summary{TotalCount: len(scores)}
	var total float64
	for _, s := range scores {
		if s.Eligible {
			sum.EligibleCount++
		} else {
			sum.IneligibleCount++
		}
		total += s.Score
		if s.Score > sum.TopScore {
			sum.TopScore = s.Score
		}
	}
	if len(scores) > 0 {
		sum.AverageScore = total / float64(len(scores))
	}
	return sum
}
