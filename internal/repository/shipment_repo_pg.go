package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShipmentFilter struct {
	Query       string
	FromAirport string
	ToAirport   string
	DateFrom    time.Time
	DateTo      time.Time
}

type ShipmentRepository interface {
	ListOpen(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error)
	ListOpenByOwner(ctx context.Context, ownerID string) ([]domain.Shipment, error)
	GetByID(ctx context.Context, id string) (*domain.Shipment, error)
	Create(ctx context.Context, shipment *domain.Shipment) error
	Update(ctx context.Context, shipment *domain.Shipment) error
	Delete(ctx context.Context, id, ownerID string) error
	ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Shipment, error)
}

type PGShipmentRepository struct {
	db *pgxpool.Pool
}

func NewShipmentRepository(db *pgxpool.Pool) ShipmentRepository {
	return &PGShipmentRepository{db: db}
}

const shipmentColumns = `id, owner_id, from_airport, to_airport, from_city, from_country, to_city, to_country,
	deadline, item_title, item_description, category, weight, product_url, image_ref,
	budget_amount, budget_currency, status, created_at, updated_at`

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := row.Scan(&s.ID, &s.OwnerID, &s.FromAirport, &s.ToAirport, &s.FromCity, &s.FromCountry,
		&s.ToCity, &s.ToCountry, &s.Deadline, &s.ItemTitle, &s.ItemDesc, &s.Category, &s.Weight,
		&s.ProductURL, &s.ImageRef, &s.BudgetAmount, &s.BudgetCurrency, &s.Status,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGShipmentRepository) ListOpen(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments
		WHERE status = 'OPEN'
		AND ($1 = '' OR item_title ILIKE '%' || $1 || '%' OR item_description ILIKE '%' || $1 || '%')
		AND ($2 = '' OR from_airport = $2)
		AND ($3 = '' OR to_airport = $3)
		AND ($4::timestamptz IS NULL OR deadline >= $4)
		AND ($5::timestamptz IS NULL OR deadline <= $5)
		ORDER BY deadline`,
		filter.Query, filter.FromAirport, filter.ToAirport,
		nullableTime(filter.DateFrom), nullableTime(filter.DateTo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0)
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

func (r *PGShipmentRepository) ListOpenByOwner(ctx context.Context, ownerID string) ([]domain.Shipment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments
		WHERE owner_id = $1 AND status = 'OPEN' ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shipments := make([]domain.Shipment, 0)
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

func (r *PGShipmentRepository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	return scanShipment(row)
}

func (r *PGShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	shipment.Status = domain.ShipmentStatusOpen
	return r.db.QueryRow(ctx, `INSERT INTO shipments (id, owner_id, from_airport, to_airport, from_city, from_country,
		to_city, to_country, deadline, item_title, item_description, category, weight, product_url, image_ref,
		budget_amount, budget_currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at`,
		shipment.ID, shipment.OwnerID, shipment.FromAirport, shipment.ToAirport, shipment.FromCity,
		shipment.FromCountry, shipment.ToCity, shipment.ToCountry, shipment.Deadline, shipment.ItemTitle,
		shipment.ItemDesc, shipment.Category, shipment.Weight, shipment.ProductURL, shipment.ImageRef,
		shipment.BudgetAmount, shipment.BudgetCurrency, shipment.Status).
		Scan(&shipment.CreatedAt, &shipment.UpdatedAt)
}

func (r *PGShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	res, err := r.db.Exec(ctx, `UPDATE shipments SET from_airport=$1, to_airport=$2, from_city=$3, from_country=$4,
		to_city=$5, to_country=$6, deadline=$7, item_title=$8, item_description=$9, category=$10, weight=$11,
		product_url=$12, image_ref=$13, budget_amount=$14, budget_currency=$15, updated_at=now()
		WHERE id=$16 AND owner_id=$17 AND status='OPEN'
		AND NOT EXISTS (SELECT 1 FROM match_requests mr WHERE mr.shipment_id=$16 AND mr.status IN ('PENDING', 'ACCEPTED'))`,
		shipment.FromAirport, shipment.ToAirport, shipment.FromCity, shipment.FromCountry,
		shipment.ToCity, shipment.ToCountry, shipment.Deadline, shipment.ItemTitle, shipment.ItemDesc,
		shipment.Category, shipment.Weight, shipment.ProductURL, shipment.ImageRef,
		shipment.BudgetAmount, shipment.BudgetCurrency, shipment.ID, shipment.OwnerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PGShipmentRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM shipments
		WHERE id=$1 AND owner_id=$2 AND status='OPEN'
		AND NOT EXISTS (SELECT 1 FROM match_requests mr WHERE mr.shipment_id=$1 AND mr.status IN ('PENDING', 'ACCEPTED'))`,
		id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PGShipmentRepository) ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Shipment, error) {
	rows, err := r.db.Query(ctx, `UPDATE shipments SET status='CANCELLED', updated_at=now()
		WHERE status='OPEN' AND deadline <= $1
		RETURNING `+shipmentColumns, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *s)
	}
	return expired, rows.Err()
}

var _ ShipmentRepository = (*PGShipmentRepository)(nil)
