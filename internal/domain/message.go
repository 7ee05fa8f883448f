package domain

import "time"

// ChatMessage is append-only. Ordering is by CreatedAt with ID as the
// tiebreaker when timestamps collide.
type ChatMessage struct {
	ID        string
	ListingID string
	SenderID  string
	Body      string
	CreatedAt time.Time
}
