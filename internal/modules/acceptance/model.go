// README: Ride/driver inputs and scoring outputs for the acceptance engine.
package acceptance

import (
	"careride/internal/modules/distance"
	"careride/internal/types"
)

// Ride is one candidate ride as the engine sees it: free-text addresses and
// scheduling fields exactly as the scheduling workflow recorded them. The
// engine reads defensively and never mutates a ride.
type Ride struct {
	ID               types.ID `json:"id"`
	PickupLocation   string   `json:"pickupLocation"`
	ProviderLocation string   `json:"providerLocation"`
	AppointmentDate  string   `json:"appointmentDate"` // "2006-01-02"
	AppointmentTime  string   `json:"appointmentTime"` // "HH:MM" or "HH:MM AM/PM"
	RoundTrip        bool     `json:"roundTrip"`
	Notes            string   `json:"notes"`
	AppointmentType  string   `json:"appointmentType"`
	// DistanceToProviderMiles is an optional precomputed pickup→provider leg.
	// Zero means unknown; the engine substitutes a 5-mile default.
	DistanceToProviderMiles float64 `json:"distanceToProviderMiles,omitempty"`
}

// Driver is the candidate driver being scored against. Only Address is load
// bearing; the rest bias the preference heuristics and default to neutral.
type Driver struct {
	ID             types.ID `json:"id"`
	Address        string   `json:"address"`
	PreferredShift string   `json:"preferredShift,omitempty"` // e.g. "night"
	Availability   string   `json:"availability,omitempty"`   // "part-time", "weekends-only", "weekdays-only"
	AgeGroup       string   `json:"ageGroup,omitempty"`       // "senior", "student", ...
	Employment     string   `json:"employment,omitempty"`     // "retired", ...
}

// DistanceFactor scores how close the pickup is to the driver and carries the
// full-trip estimate used by the ride listing.
type DistanceFactor struct {
	Score                float64       `json:"score"`
	Miles                float64       `json:"miles"`
	Kind                 distance.Kind `json:"kind,omitempty"`
	TotalTripMiles       float64       `json:"totalTripMiles"`
	EstimatedTripMinutes float64       `json:"estimatedTripMinutes"`
	WithinRange          bool          `json:"withinRange"`
	Reason               string        `json:"reason"`
}

// TimingFactor scores how far out the appointment is.
type TimingFactor struct {
	Score      float64 `json:"score"`
	HoursUntil float64 `json:"hoursUntil"`
	Reason     string  `json:"reason"`
}

// UrgencyFactor scores medical urgency signals in the ride's free text.
type UrgencyFactor struct {
	Score    float64 `json:"score"`
	IsUrgent bool    `json:"isUrgent"`
	Reason   string  `json:"reason"`
}

// TimeOfDayFactor scores the appointment's hour against driver preferences.
type TimeOfDayFactor struct {
	Score  float64 `json:"score"`
	Hour   int     `json:"hour"`
	Reason string  `json:"reason"`
}

// DayOfWeekFactor scores the appointment's weekday against driver preferences.
type DayOfWeekFactor struct {
	Score   float64 `json:"score"`
	Weekday string  `json:"weekday"`
	Reason  string  `json:"reason"`
}

// Factors bundles the five sub-scores attached to every scored ride.
type Factors struct {
	Distance  DistanceFactor  `json:"distance"`
	Time      TimingFactor    `json:"time"`
	Urgency   UrgencyFactor   `json:"urgency"`
	TimeOfDay TimeOfDayFactor `json:"timeOfDay"`
	DayOfWeek DayOfWeekFactor `json:"dayOfWeek"`
}

// Score is the per-ride output: 0–100 overall, rank after sorting, and the
// factor breakdown. Computed fresh on every request, never persisted.
type Score struct {
	RideID   types.ID `json:"rideId"`
	Score    float64  `json:"score"`
	Rank     int      `json:"rank"`
	Eligible bool     `json:"eligible"`
	Reason   string   `json:"reason"`
	Factors  Factors  `json:"factors"`
}

// Summary aggregates one scored batch.
type Summary struct {
	TotalCount      int     `json:"totalCount"`
	EligibleCount   int     `json:"eligibleCount"`
	IneligibleCount int     `json:"ineligibleCount"`
	AverageScore    float64 `json:"averageScore"`
	TopScore        float64 `json:"topScore"`
}

// BatchResult is the ranked output of ProcessBatch.
type BatchResult struct {
	Scores  []Score `json:"scores"`
	Summary Summary `json:"summary"`
}
