// README: Cache-aware distance resolution with batched matrix lookups and synthetic fallback.
package distance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
)

// ErrInvalidInput is returned for a direct lookup with an empty address.
// It indicates a caller bug and is the only error a resolver surfaces;
// everything else degrades to a synthetic estimate.
var ErrInvalidInput = errors.New("distance: origin and destination are required")

// Cell is one origin×destination element of a matrix response.
type Cell struct {
	OK              bool
	Meters          int
	DurationSeconds int
	DistanceText    string
	DurationText    string
}

// MatrixProvider is the external distance capability: one call resolves a
// full origins×destinations grid. Implementations may fail per-cell (OK=false)
// or wholesale (error); the resolver recovers from both.
type MatrixProvider interface {
	Matrix(ctx context.Context, origins, destinations []string) ([][]Cell, error)
}

// Resolver answers distance requests from cache first, then the matrix
// provider, then a synthetic estimate. It never returns a transport error to
// callers: a dead or absent provider costs accuracy, not availability.
type Resolver struct {
	cache     Cache
	matrix    MatrixProvider // nil when no capability is configured
	batchSize int            // max addresses per matrix axis per call
	randFloat func() float64 // injected for deterministic tests
}

func NewResolver(cache Cache, matrix MatrixProvider, batchSize int) *Resolver {
	if batchSize < 1 {
		batchSize = 25
	}
	return &Resolver{
		cache:     cache,
		matrix:    matrix,
		batchSize: batchSize,
		randFloat: rand.Float64,
	}
}

// Resolve returns the driving distance for a single pair.
func (r *Resolver) Resolve(ctx context.Context, origin, destination string) (Result, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return Result{}, ErrInvalidInput
	}
	if res, ok := r.cache.Get(ctx, origin, destination); ok {
		return res, nil
	}
	if r.matrix == nil {
		return r.estimate(), nil
	}

	grid, err := r.matrix.Matrix(ctx, []string{origin}, []string{destination})
	if err != nil {
		log.Printf("distance: matrix call failed, estimating %q -> %q: %v", origin, destination, err)
		return r.estimate(), nil
	}
	if len(grid) == 0 || len(grid[0]) == 0 || !grid[0][0].OK {
		return r.estimate(), nil
	}
	res := fromCell(grid[0][0])
	r.cache.Set(ctx, origin, destination, res)
	return res, nil
}

// ResolveBatch resolves many pairs with at most one matrix call per
// batchSize×batchSize chunk of unique uncached addresses. The returned slice
// is parallel to reqs. Requests with empty addresses get estimates; a batch
// never fails.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	type pending struct {
		idx       int
		originIdx int
		destIdx   int
	}
	var uncached []pending
	var origins, destinations []string
	originIndex := make(map[string]int)
	destIndex := make(map[string]int)

	for i, req := range reqs {
		if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
			results[i] = r.estimate()
			continue
		}
		if res, ok := r.cache.Get(ctx, req.Origin, req.Destination); ok {
			results[i] = res
			continue
		}
		oi, ok := originIndex[req.Origin]
		if !ok {
			oi = len(origins)
			originIndex[req.Origin] = oi
			origins = append(origins, req.Origin)
		}
		di, ok := destIndex[req.Destination]
		if !ok {
			di = len(destinations)
			destIndex[req.Destination] = di
			destinations = append(destinations, req.Destination)
		}
		uncached = append(uncached, pending{idx: i, originIdx: oi, destIdx: di})
	}

	if len(uncached) == 0 {
		return results
	}
	if r.matrix == nil {
		for _, p := range uncached {
			results[p.idx] = r.estimate()
		}
		return results
	}

	grid, err := r.chunkedMatrix(ctx, origins, destinations)
	if err != nil {
		log.Printf("distance: batch matrix call failed, estimating %d pairs: %v", len(uncached), err)
		for _, p := range uncached {
			results[p.idx] = r.estimate()
		}
		return results
	}

	for _, p := range uncached {
		cell := grid[p.originIdx][p.destIdx]
		if !cell.OK {
			results[p.idx] = r.estimate()
			continue
		}
		res := fromCell(cell)
		r.cache.Set(ctx, reqs[p.idx].Origin, reqs[p.idx].Destination, res)
		results[p.idx] = res
	}
	return results
}

// chunkedMatrix splits each axis into batchSize slices so one scoring request
// with many unique addresses stays within the provider's element limits. The
// assembled grid is origins×destinations; any chunk failure fails the whole
// batch (the caller estimates everything).
func (r *Resolver) chunkedMatrix(ctx context.Context, origins, destinations []string) ([][]Cell, error) {
	grid := make([][]Cell, len(origins))
	for i := range grid {
		grid[i] = make([]Cell, len(destinations))
	}
	for oStart := 0; oStart < len(origins); oStart += r.batchSize {
		oEnd := min(oStart+r.batchSize, len(origins))
		for dStart := 0; dStart < len(destinations); dStart += r.batchSize {
			dEnd := min(dStart+r.batchSize, len(destinations))
			part, err := r.matrix.Matrix(ctx, origins[oStart:oEnd], destinations[dStart:dEnd])
			if err != nil {
				return nil, err
			}
			for i, row := range part {
				if oStart+i >= len(origins) {
					break
				}
				for j, cell := range row {
					if dStart+j >= len(destinations) {
						break
					}
					grid[oStart+i][dStart+j] = cell
				}
			}
		}
	}
	return grid, nil
}

// estimate fabricates a plausible distance when no measured one is available:
// uniform in [1, 25) miles, duration at 2.5 minutes per mile. Estimates are
// tagged and never cached.
func (r *Resolver) estimate() Result {
	miles := 1 + r.randFloat()*24
	minutes := miles * 2.5
	return Result{
		Kind:            KindEstimated,
		Miles:           miles,
		DurationSeconds: int(minutes * 60),
		DistanceText:    fmt.Sprintf("%.1f mi", miles),
		DurationText:    fmt.Sprintf("%.0f mins", minutes),
	}
}

func fromCell(c Cell) Result {
	return Result{
		Kind:            KindMeasured,
		Miles:           float64(c.Meters) / metersPerMile,
		DurationSeconds: c.DurationSeconds,
		DistanceText:    c.DistanceText,
		DurationText:    c.DurationText,
	}
}
