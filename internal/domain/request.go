package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusAccepted  RequestStatus = "ACCEPTED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// Active means the request still occupies its (trip, shipment) slot.
// At most one active request may exist per pair.
func (s RequestStatus) Active() bool {
	return s == RequestStatusPending || s == RequestStatusAccepted
}

type Offer struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Note     string  `json:"note"`
}

// MatchRequest links one shipment to one trip. RequesterID is the shipment
// owner, OwnerID the trip owner. Transitions out of PENDING are absorbing.
type MatchRequest struct {
	ID          string
	TripID      string
	ShipmentID  string
	RequesterID string
	OwnerID     string
	Offer       Offer
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
