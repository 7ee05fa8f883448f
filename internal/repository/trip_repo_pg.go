package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TripFilter narrows explore queries. Zero values mean "no constraint".
type TripFilter struct {
	Query       string
	FromAirport string
	ToAirport   string
	DateFrom    time.Time
	DateTo      time.Time
	MinWeight   float64
}

type TripRepository interface {
	ListOpen(ctx context.Context, filter TripFilter) ([]domain.Trip, error)
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	Create(ctx context.Context, trip *domain.Trip) error
	Update(ctx context.Context, trip *domain.Trip) error
	Delete(ctx context.Context, id, ownerID string) error
	ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Trip, error)
}

type PGTripRepository struct {
	db *pgxpool.Pool
}

func NewTripRepository(db *pgxpool.Pool) TripRepository {
	return &PGTripRepository{db: db}
}

const tripColumns = `t.id, t.owner_id, t.from_airport, t.to_airport, t.travel_date, t.arrival_date,
	t.available_weight, t.airline, t.flight_number, t.meet_preference, t.meet_place, t.prohibited,
	t.status, t.created_at, t.updated_at,
	(SELECT count(*) FROM match_requests mr WHERE mr.trip_id = t.id AND mr.status IN ('PENDING', 'ACCEPTED'))`

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.OwnerID, &t.FromAirport, &t.ToAirport, &t.TravelDate, &t.ArrivalDate,
		&t.AvailableWeight, &t.Airline, &t.FlightNumber, &t.MeetPreference, &t.MeetPlace, &t.Prohibited,
		&t.Status, &t.CreatedAt, &t.UpdatedAt, &t.RequestsCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTripRepository) ListOpen(ctx context.Context, filter TripFilter) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tripColumns+` FROM trips t
		WHERE t.status = 'OPEN'
		AND ($1 = '' OR t.airline ILIKE '%' || $1 || '%' OR t.flight_number ILIKE '%' || $1 || '%')
		AND ($2 = '' OR t.from_airport = $2)
		AND ($3 = '' OR t.to_airport = $3)
		AND ($4::timestamptz IS NULL OR t.travel_date >= $4)
		AND ($5::timestamptz IS NULL OR t.travel_date <= $5)
		AND ($6::float8 = 0 OR t.available_weight >= $6)
		ORDER BY t.travel_date`,
		filter.Query, filter.FromAirport, filter.ToAirport,
		nullableTime(filter.DateFrom), nullableTime(filter.DateTo), filter.MinWeight)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (r *PGTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips t WHERE t.id = $1`, id)
	return scanTrip(row)
}

func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	trip.Status = domain.TripStatusOpen
	return r.db.QueryRow(ctx, `INSERT INTO trips (id, owner_id, from_airport, to_airport, travel_date, arrival_date,
		available_weight, airline, flight_number, meet_preference, meet_place, prohibited, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		trip.ID, trip.OwnerID, trip.FromAirport, trip.ToAirport, trip.TravelDate, trip.ArrivalDate,
		trip.AvailableWeight, trip.Airline, trip.FlightNumber, trip.MeetPreference, trip.MeetPlace,
		trip.Prohibited, trip.Status).
		Scan(&trip.CreatedAt, &trip.UpdatedAt)
}

// Update succeeds only while the trip is open, unlocked and owned by the
// caller. Zero rows affected means the precondition no longer holds.
func (r *PGTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	res, err := r.db.Exec(ctx, `UPDATE trips SET from_airport=$1, to_airport=$2, travel_date=$3, arrival_date=$4,
		available_weight=$5, airline=$6, flight_number=$7, meet_preference=$8, meet_place=$9, prohibited=$10,
		updated_at=now()
		WHERE id=$11 AND owner_id=$12 AND status='OPEN'
		AND NOT EXISTS (SELECT 1 FROM match_requests mr WHERE mr.trip_id=$11 AND mr.status IN ('PENDING', 'ACCEPTED'))`,
		trip.FromAirport, trip.ToAirport, trip.TravelDate, trip.ArrivalDate,
		trip.AvailableWeight, trip.Airline, trip.FlightNumber, trip.MeetPreference, trip.MeetPlace,
		trip.Prohibited, trip.ID, trip.OwnerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PGTripRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM trips
		WHERE id=$1 AND owner_id=$2 AND status='OPEN'
		AND NOT EXISTS (SELECT 1 FROM match_requests mr WHERE mr.trip_id=$1 AND mr.status IN ('PENDING', 'ACCEPTED'))`,
		id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PGTripRepository) ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `UPDATE trips t SET status='CANCELLED', updated_at=now()
		WHERE t.status='OPEN' AND t.travel_date <= $1
		RETURNING `+tripColumns, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *t)
	}
	return expired, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ TripRepository = (*PGTripRepository)(nil)
