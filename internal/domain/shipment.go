package domain

import "time"

type ShipmentStatus string

const (
	ShipmentStatusOpen      ShipmentStatus = "OPEN"
	ShipmentStatusMatched   ShipmentStatus = "MATCHED"
	ShipmentStatusCompleted ShipmentStatus = "COMPLETED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

type Shipment struct {
	ID             string
	OwnerID        string
	FromAirport    string
	ToAirport      string
	FromCity       string
	FromCountry    string
	ToCity         string
	ToCountry      string
	Deadline       time.Time
	ItemTitle      string
	ItemDesc       string
	Category       string
	Weight         float64
	ProductURL     string
	ImageRef       string
	BudgetAmount   float64
	BudgetCurrency string
	Status         ShipmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Shipment) VisibleInExplore() bool {
	return s.Status == ShipmentStatusOpen
}

// UsableForRequest reports whether the shipment can back a new match
// request. Only open shipments qualify; matched, completed and cancelled
// ones are spoken for.
func (s *Shipment) UsableForRequest() bool {
	return s.Status == ShipmentStatusOpen
}
