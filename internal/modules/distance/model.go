// README: Distance results and requests shared by cache and resolver.
package distance

import "time"

// Kind tags whether a result came from the distance capability or was
// synthesized locally when the capability was missing or failing. Consumers
// can treat estimated distances as plausible but uncalibrated.
type Kind string

const (
	KindMeasured  Kind = "measured"
	KindEstimated Kind = "estimated"
)

// Result is one resolved origin→destination driving distance.
type Result struct {
	Kind            Kind    `json:"kind"`
	Miles           float64 `json:"miles"`
	DurationSeconds int     `json:"durationSeconds"`
	DistanceText    string  `json:"distanceText"`
	DurationText    string  `json:"durationText"`
}

// Request is one origin→destination pair to resolve.
type Request struct {
	Origin      string
	Destination string
}

// entry is a cached measured result plus bookkeeping for expiry and
// diagnostics. The normalized addresses are kept so a stale or surprising
// entry can be traced back to the pair that produced it.
type entry struct {
	Result     Result    `json:"result"`
	OriginNorm string    `json:"originNorm"`
	DestNorm   string    `json:"destNorm"`
	StoredAt   time.Time `json:"storedAt"`
}

const metersPerMile = 1609.344
