package domain

import "time"

type TripStatus string

const (
	TripStatusOpen      TripStatus = "OPEN"
	TripStatusMatched   TripStatus = "MATCHED"
	TripStatusInTransit TripStatus = "IN_TRANSIT"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

type MeetPreference string

const (
	MeetAtAirport MeetPreference = "airport"
	MeetNearby    MeetPreference = "nearby"
	MeetInCity    MeetPreference = "city"
)

type Trip struct {
	ID              string
	OwnerID         string
	FromAirport     string
	ToAirport       string
	TravelDate      time.Time
	ArrivalDate     time.Time
	AvailableWeight float64
	Airline         string
	FlightNumber    string
	MeetPreference  MeetPreference
	MeetPlace       string
	Prohibited      []string
	Status          TripStatus
	RequestsCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Locked reports whether the trip may still be edited or deleted by its
// owner. Advisory on the read side; mutations re-check against the database.
func (t *Trip) Locked() bool {
	return t.RequestsCount > 0 || t.Status != TripStatusOpen
}

func (t *Trip) VisibleInExplore() bool {
	return t.Status == TripStatusOpen
}
