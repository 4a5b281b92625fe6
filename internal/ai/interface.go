package ai

import (
	"context"

	"careride/internal/modules/acceptance"
)

// Advisor turns a scored ride batch into a short, dispatcher-readable
// recommendation. Implementations may call out to an LLM; callers must treat
// the advice as optional color, never as scoring input.
type Advisor interface {
	AdviseDriver(ctx context.Context, driverName string, board BoardDigest) (*Advice, error)
}

// BoardDigest is the compact view of a scored board handed to the model:
// aggregate stats plus the handful of top-ranked rides.
type BoardDigest struct {
	Summary acceptance.Summary
	Top     []RideDigest
}

// RideDigest is one ride reduced to the fields worth narrating.
type RideDigest struct {
	RideID          string
	Score           float64
	Rank            int
	Eligible        bool
	Reason          string
	AppointmentDate string
	AppointmentTime string
	IsUrgent        bool
}
