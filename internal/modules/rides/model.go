// README: Ride and driver records as stored; conversion to scoring inputs.
package rides

import (
	"time"

	"careride/internal/modules/acceptance"
	"careride/internal/types"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Ride is one scheduled patient ride. Addresses and scheduling fields are
// free text from the intake workflow; the scoring engine parses them
// defensively.
type Ride struct {
	ID                      types.ID   `json:"id"`
	Status                  Status     `json:"status"`
	DriverID                *types.ID  `json:"driverId,omitempty"`
	PatientName             string     `json:"patientName"`
	PickupLocation          string     `json:"pickupLocation"`
	ProviderLocation        string     `json:"providerLocation"`
	AppointmentDate         string     `json:"appointmentDate"`
	AppointmentTime         string     `json:"appointmentTime"`
	RoundTrip               bool       `json:"roundTrip"`
	Notes                   string     `json:"notes,omitempty"`
	AppointmentType         string     `json:"appointmentType,omitempty"`
	DistanceToProviderMiles *float64   `json:"distanceToProviderMiles,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	ClaimedAt               *time.Time `json:"claimedAt,omitempty"`
}

// Candidate converts a stored ride into the engine's input shape.
func (r *Ride) Candidate() acceptance.Ride {
	c := acceptance.Ride{
		ID:               r.ID,
		PickupLocation:   r.PickupLocation,
		ProviderLocation: r.ProviderLocation,
		AppointmentDate:  r.AppointmentDate,
		AppointmentTime:  r.AppointmentTime,
		RoundTrip:        r.RoundTrip,
		Notes:            r.Notes,
		AppointmentType:  r.AppointmentType,
	}
	if r.DistanceToProviderMiles != nil {
		c.DistanceToProviderMiles = *r.DistanceToProviderMiles
	}
	return c
}

// Driver is a volunteer driver account. The behavioral fields are optional
// hints; empty strings mean neutral preference.
type Driver struct {
	ID             types.ID
	Name           string
	Address        string
	PreferredShift string
	Availability   string
	AgeGroup       string
	Employment     string
	CreatedAt      time.Time
}

// Profile converts a stored driver into the engine's input shape.
func (d *Driver) Profile() acceptance.Driver {
	return acceptance.Driver{
		ID:             d.ID,
		Address:        d.Address,
		PreferredShift: d.PreferredShift,
		Availability:   d.Availability,
		AgeGroup:       d.AgeGroup,
		Employment:     d.Employment,
	}
}
