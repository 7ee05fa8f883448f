package repository

import (
	"context"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	ListByListing(ctx context.Context, listingID string) ([]domain.ChatMessage, error)
	Append(ctx context.Context, message *domain.ChatMessage) error
}

type PGMessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &PGMessageRepository{db: db}
}

func (r *PGMessageRepository) ListByListing(ctx context.Context, listingID string) ([]domain.ChatMessage, error) {
	// id breaks ties when timestamps collide, keeping the order stable.
	rows, err := r.db.Query(ctx, `SELECT id, listing_id, sender_id, body, created_at FROM chat_messages
		WHERE listing_id=$1 ORDER BY created_at, id`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ListingID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *PGMessageRepository) Append(ctx context.Context, message *domain.ChatMessage) error {
	return r.db.QueryRow(ctx, `INSERT INTO chat_messages (id, listing_id, sender_id, body)
		VALUES ($1, $2, $3, $4) RETURNING created_at`,
		message.ID, message.ListingID, message.SenderID, message.Body).
		Scan(&message.CreatedAt)
}

var _ MessageRepository = (*PGMessageRepository)(nil)
