package repository

import (
	"context"
	"errors"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository interface {
	Create(ctx context.Context, request *domain.MatchRequest) error
	GetByID(ctx context.Context, id string) (*domain.MatchRequest, error)
	// GetActive returns the single pending or accepted request for the
	// (trip, shipment) pair, or ErrNotFound.
	GetActive(ctx context.Context, tripID, shipmentID string) (*domain.MatchRequest, error)
	GetActiveByRequester(ctx context.Context, tripID, requesterID string) (*domain.MatchRequest, error)
	// GetAcceptedForListing returns the accepted request involving the
	// listing (as trip or shipment). At most one can exist.
	GetAcceptedForListing(ctx context.Context, listingID string) (*domain.MatchRequest, error)
	ListByTrip(ctx context.Context, tripID string) ([]domain.MatchRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.MatchRequest, error)
	UpdateOffer(ctx context.Context, id string, offer domain.Offer) (*domain.MatchRequest, error)
	// Transition moves the request from PENDING to the given status. The
	// update is conditional; a request that already left PENDING yields
	// ErrInvalidState.
	Transition(ctx context.Context, id string, to domain.RequestStatus) (*domain.MatchRequest, error)
	// Accept runs the whole acceptance in one transaction: the request
	// becomes ACCEPTED, trip and shipment become MATCHED, and every sibling
	// pending request on the trip becomes REJECTED.
	Accept(ctx context.Context, id string) (*domain.MatchRequest, error)
}

type PGRequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) RequestRepository {
	return &PGRequestRepository{db: db}
}

const requestColumns = `id, trip_id, shipment_id, requester_id, owner_id,
	offer_amount, offer_currency, offer_note, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.MatchRequest, error) {
	var m domain.MatchRequest
	if err := row.Scan(&m.ID, &m.TripID, &m.ShipmentID, &m.RequesterID, &m.OwnerID,
		&m.Offer.Amount, &m.Offer.Currency, &m.Offer.Note, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGRequestRepository) Create(ctx context.Context, request *domain.MatchRequest) error {
	request.Status = domain.RequestStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO match_requests (id, trip_id, shipment_id, requester_id, owner_id,
		offer_amount, offer_currency, offer_note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		request.ID, request.TripID, request.ShipmentID, request.RequesterID, request.OwnerID,
		request.Offer.Amount, request.Offer.Currency, request.Offer.Note, request.Status).
		Scan(&request.CreatedAt, &request.UpdatedAt)
}

func (r *PGRequestRepository) GetByID(ctx context.Context, id string) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM match_requests WHERE id=$1`, id)
	return scanRequest(row)
}

func (r *PGRequestRepository) GetActive(ctx context.Context, tripID, shipmentID string) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM match_requests
		WHERE trip_id=$1 AND shipment_id=$2 AND status IN ('PENDING', 'ACCEPTED')`, tripID, shipmentID)
	return scanRequest(row)
}

func (r *PGRequestRepository) GetActiveByRequester(ctx context.Context, tripID, requesterID string) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM match_requests
		WHERE trip_id=$1 AND requester_id=$2 AND status IN ('PENDING', 'ACCEPTED')
		ORDER BY created_at DESC LIMIT 1`, tripID, requesterID)
	return scanRequest(row)
}

func (r *PGRequestRepository) GetAcceptedForListing(ctx context.Context, listingID string) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM match_requests
		WHERE (trip_id=$1 OR shipment_id=$1) AND status='ACCEPTED' LIMIT 1`, listingID)
	return scanRequest(row)
}

func (r *PGRequestRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.MatchRequest, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM match_requests WHERE trip_id=$1 ORDER BY created_at`, tripID)
}

func (r *PGRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.MatchRequest, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM match_requests WHERE requester_id=$1 ORDER BY created_at DESC`, requesterID)
}

func (r *PGRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.MatchRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.MatchRequest, 0)
	for rows.Next() {
		m, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *m)
	}
	return requests, rows.Err()
}

func (r *PGRequestRepository) UpdateOffer(ctx context.Context, id string, offer domain.Offer) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `UPDATE match_requests
		SET offer_amount=$1, offer_currency=$2, offer_note=$3, updated_at=now()
		WHERE id=$4 AND status='PENDING'
		RETURNING `+requestColumns, offer.Amount, offer.Currency, offer.Note, id)
	m, err := scanRequest(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, r.conflictOrMissing(ctx, id)
	}
	return m, err
}

func (r *PGRequestRepository) Transition(ctx context.Context, id string, to domain.RequestStatus) (*domain.MatchRequest, error) {
	row := r.db.QueryRow(ctx, `UPDATE match_requests SET status=$1, updated_at=now()
		WHERE id=$2 AND status='PENDING'
		RETURNING `+requestColumns, to, id)
	m, err := scanRequest(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, r.conflictOrMissing(ctx, id)
	}
	return m, err
}

func (r *PGRequestRepository) Accept(ctx context.Context, id string) (*domain.MatchRequest, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE match_requests SET status='ACCEPTED', updated_at=now()
		WHERE id=$1 AND status='PENDING'
		RETURNING `+requestColumns, id)
	accepted, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE trips SET status='MATCHED', updated_at=now()
		WHERE id=$1 AND status='OPEN'`, accepted.TripID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE shipments SET status='MATCHED', updated_at=now()
		WHERE id=$1 AND status='OPEN'`, accepted.ShipmentID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE match_requests SET status='REJECTED', updated_at=now()
		WHERE trip_id=$1 AND id <> $2 AND status='PENDING'`, accepted.TripID, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return accepted, nil
}

// conflictOrMissing distinguishes a request that left PENDING from one that
// never existed, so callers can answer 409 vs 404 honestly.
func (r *PGRequestRepository) conflictOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM match_requests WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrInvalidState
	}
	return domain.ErrNotFound
}

var _ RequestRepository = (*PGRequestRepository)(nil)
