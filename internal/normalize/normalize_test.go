package normalize

import (
	"testing"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTrip_CanonicalNames(t *testing.T) {
	raw := Raw{
		"id":               "t1",
		"owner_id":         "u1",
		"from_airport":     "ist",
		"to_airport":       " jfk ",
		"travel_date":      "2026-03-01T10:00:00Z",
		"arrival_date":     "2026-03-01T18:00:00Z",
		"available_weight": 12.5,
		"airline":          " Turkish Airlines ",
		"flight_number":    "TK1",
		"meet_preference":  "nearby",
		"meet_place":       "Kadikoy",
		"prohibited":       []any{"liquids", " batteries "},
		"status":           "open",
	}

	trip := Trip(raw)

	assert.Equal(t, "t1", trip.ID)
	assert.Equal(t, "IST", trip.FromAirport)
	assert.Equal(t, "JFK", trip.ToAirport)
	assert.Equal(t, "Turkish Airlines", trip.Airline)
	assert.Equal(t, 12.5, trip.AvailableWeight)
	assert.Equal(t, domain.MeetNearby, trip.MeetPreference)
	assert.Equal(t, []string{"liquids", "batteries"}, trip.Prohibited)
	assert.Equal(t, domain.TripStatusOpen, trip.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), trip.TravelDate)
}

func TestTrip_Aliases(t *testing.T) {
	raw := Raw{
		"trip_id":           "t2",
		"traveler_id":       "u2",
		"from_iata":         "svo",
		"to_airport_code":   "led",
		"departure_date":    "2026-04-02",
		"capacity_kg":       "8",
		"traveler_airline":  "Aeroflot",
		"flight_no":         "SU10",
		"status":            "OPEN",
	}

	trip := Trip(raw)

	assert.Equal(t, "t2", trip.ID)
	assert.Equal(t, "u2", trip.OwnerID)
	assert.Equal(t, "SVO", trip.FromAirport)
	assert.Equal(t, "LED", trip.ToAirport)
	assert.Equal(t, 8.0, trip.AvailableWeight)
	assert.Equal(t, "Aeroflot", trip.Airline)
	assert.Equal(t, "SU10", trip.FlightNumber)
}

func TestTrip_CanonicalNameWinsOverAlias(t *testing.T) {
	raw := Raw{
		"from_airport": "IST",
		"from_iata":    "SAW",
	}
	assert.Equal(t, "IST", Trip(raw).FromAirport)
}

func TestNum_NonFiniteBecomesZero(t *testing.T) {
	for _, bad := range []any{"NaN", "+Inf", "-Inf", "not a number", true} {
		trip := Trip(Raw{"available_weight": bad})
		assert.Equal(t, 0.0, trip.AvailableWeight, "input %v", bad)
	}
}

func TestShipment_Aliases(t *testing.T) {
	raw := Raw{
		"shipment_id":       "s1",
		"sender_id":         "u3",
		"from_airport_code": "ber",
		"to_iata":           "ist",
		"origin_city":       " Berlin ",
		"destination_city":  "Istanbul",
		"delivery_deadline": "2026-05-01",
		"item_title":        "Camera lens",
		"item_weight":       "1.2",
		"budget":            150,
		"currency":          "EUR",
		"status":            "open",
	}

	s := Shipment(raw)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "u3", s.OwnerID)
	assert.Equal(t, "BER", s.FromAirport)
	assert.Equal(t, "Berlin", s.FromCity)
	assert.Equal(t, "Camera lens", s.ItemTitle)
	assert.Equal(t, 1.2, s.Weight)
	assert.Equal(t, 150.0, s.BudgetAmount)
	assert.Equal(t, "EUR", s.BudgetCurrency)
	assert.Equal(t, domain.ShipmentStatusOpen, s.Status)
}

// tripRaw re-encodes a canonical trip so the normalizer can be applied twice.
func tripRaw(t domain.Trip) Raw {
	return Raw{
		"id":               t.ID,
		"owner_id":         t.OwnerID,
		"from_airport":     t.FromAirport,
		"to_airport":       t.ToAirport,
		"travel_date":      t.TravelDate,
		"arrival_date":     t.ArrivalDate,
		"available_weight": t.AvailableWeight,
		"airline":          t.Airline,
		"flight_number":    t.FlightNumber,
		"meet_preference":  string(t.MeetPreference),
		"meet_place":       t.MeetPlace,
		"prohibited":       t.Prohibited,
		"status":           string(t.Status),
		"requests_count":   t.RequestsCount,
	}
}

func TestTrip_Idempotent(t *testing.T) {
	raw := Raw{
		"trip_id":          "t9",
		"from_iata":        " ist",
		"to_airport_code":  "jfk ",
		"departure_date":   "2026-03-01T10:00:00Z",
		"capacity_kg":      "20",
		"traveler_airline": "TK",
		"status":           "open",
		"prohibited":       []any{" liquids"},
	}

	once := Trip(raw)
	twice := Trip(tripRaw(once))

	assert.Equal(t, once, twice)
}
