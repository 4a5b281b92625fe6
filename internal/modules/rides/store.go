// README: Ride and driver store backed by PostgreSQL.
package rides

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careride/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateRide(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, status, driver_id, patient_name,
			pickup_location, provider_location,
			appointment_date, appointment_time,
			round_trip, notes, appointment_type,
			distance_to_provider_miles, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8,
			$9, $10, $11,
			$12, $13
		)`,
		string(r.ID),
		string(r.Status),
		toStringPtr(r.DriverID),
		r.PatientName,
		r.PickupLocation,
		r.ProviderLocation,
		r.AppointmentDate,
		r.AppointmentTime,
		r.RoundTrip,
		r.Notes,
		r.AppointmentType,
		r.DistanceToProviderMiles,
		r.CreatedAt,
	)
	return err
}

func (s *Store) GetRide(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, status, driver_id, patient_name,
		       pickup_location, provider_location,
		       appointment_date, appointment_time,
		       round_trip, notes, appointment_type,
		       distance_to_provider_miles, created_at, claimed_at
		FROM rides
		WHERE id = $1`, string(id),
	)
	return scanRide(row)
}

// ListOpen returns unclaimed rides, oldest first.
func (s *Store) ListOpen(ctx context.Context) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, status, driver_id, patient_name,
		       pickup_location, provider_location,
		       appointment_date, appointment_time,
		       round_trip, notes, appointment_type,
		       distance_to_provider_miles, created_at, claimed_at
		FROM rides
		WHERE status = 'open'
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Claim assigns the ride to the driver if it is still open. Returns false
// when another driver got there first.
func (s *Store) Claim(ctx context.Context, rideID, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = 'claimed',
		    driver_id = $1,
		    claimed_at = NOW()
		WHERE id = $2 AND status = 'open'`,
		string(driverID),
		string(rideID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CreateDriver(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (
			id, name, address, preferred_shift, availability,
			age_group, employment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(d.ID),
		d.Name,
		d.Address,
		d.PreferredShift,
		d.Availability,
		d.AgeGroup,
		d.Employment,
		d.CreatedAt,
	)
	return err
}

func (s *Store) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, address, preferred_shift, availability,
		       age_group, employment, created_at
		FROM drivers
		WHERE id = $1`, string(id),
	)

	var d Driver
	err := row.Scan(
		&d.ID, &d.Name, &d.Address, &d.PreferredShift, &d.Availability,
		&d.AgeGroup, &d.Employment, &d.CreatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// isNoRows recognizes a missing row from either the pgx or database/sql
// sentinel. pgx.ErrNoRows does not wrap sql.ErrNoRows before pgx v5.7, so
// matching only the latter leaves the not-found path unreachable.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*Ride, error) {
	var r Ride
	var driverID sql.NullString
	var distMiles sql.NullFloat64
	var claimedAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.Status, &driverID, &r.PatientName,
		&r.PickupLocation, &r.ProviderLocation,
		&r.AppointmentDate, &r.AppointmentTime,
		&r.RoundTrip, &r.Notes, &r.AppointmentType,
		&distMiles, &r.CreatedAt, &claimedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		r.DriverID = &d
	}
	if distMiles.Valid {
		v := distMiles.Float64
		r.DistanceToProviderMiles = &v
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		r.ClaimedAt = &t
	}
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
