// Package normalize maps raw listing records with inconsistent field naming
// into the canonical domain shapes. Clients and older imports disagree on
// field names, so every field resolves through a fixed alias list.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
)

// Raw is a decoded JSON object of unknown shape.
type Raw map[string]any

var tripAliases = map[string][]string{
	"id":               {"trip_id", "_id"},
	"owner_id":         {"user_id", "traveler_id", "created_by"},
	"from_airport":     {"from_airport_code", "from_iata", "origin"},
	"to_airport":       {"to_airport_code", "to_iata", "destination"},
	"travel_date":      {"departure_date", "flight_date"},
	"arrival_date":     {"arrival_time"},
	"available_weight": {"weight", "capacity_kg", "available_kg"},
	"airline":          {"traveler_airline", "carrier"},
	"flight_number":    {"flight_no", "traveler_flight_number"},
	"meet_preference":  {"meet_pref", "meeting_preference"},
	"meet_place":       {"meeting_place"},
	"prohibited":       {"prohibited_categories", "excluded_categories"},
	"status":           nil,
	"requests_count":   {"request_count", "offers_count"},
}

var shipmentAliases = map[string][]string{
	"id":              {"shipment_id", "_id"},
	"owner_id":        {"user_id", "sender_id", "created_by"},
	"from_airport":    {"from_airport_code", "from_iata"},
	"to_airport":      {"to_airport_code", "to_iata"},
	"from_city":       {"origin_city"},
	"from_country":    {"origin_country"},
	"to_city":         {"destination_city"},
	"to_country":      {"destination_country"},
	"deadline":        {"delivery_deadline", "latest_delivery"},
	"title":           {"item_title", "product_name"},
	"description":     {"item_description", "details"},
	"category":        {"item_category"},
	"weight":          {"item_weight", "weight_kg"},
	"product_url":     {"item_url", "link"},
	"image_ref":       {"image", "image_url", "photo"},
	"budget_amount":   {"budget", "price", "reward"},
	"budget_currency": {"currency"},
	"status":          nil,
}

// Trip produces the canonical trip shape from a raw record. Pure: no
// storage or network access, and idempotent over its own output.
func Trip(raw Raw) domain.Trip {
	return domain.Trip{
		ID:              str(raw, tripAliases, "id"),
		OwnerID:         str(raw, tripAliases, "owner_id"),
		FromAirport:     airport(raw, tripAliases, "from_airport"),
		ToAirport:       airport(raw, tripAliases, "to_airport"),
		TravelDate:      date(raw, tripAliases, "travel_date"),
		ArrivalDate:     date(raw, tripAliases, "arrival_date"),
		AvailableWeight: num(raw, tripAliases, "available_weight"),
		Airline:         str(raw, tripAliases, "airline"),
		FlightNumber:    str(raw, tripAliases, "flight_number"),
		MeetPreference:  domain.MeetPreference(str(raw, tripAliases, "meet_preference")),
		MeetPlace:       str(raw, tripAliases, "meet_place"),
		Prohibited:      strs(raw, tripAliases, "prohibited"),
		Status:          domain.TripStatus(strings.ToUpper(str(raw, tripAliases, "status"))),
		RequestsCount:   int(num(raw, tripAliases, "requests_count")),
	}
}

// Shipment produces the canonical shipment shape from a raw record.
func Shipment(raw Raw) domain.Shipment {
	return domain.Shipment{
		ID:             str(raw, shipmentAliases, "id"),
		OwnerID:        str(raw, shipmentAliases, "owner_id"),
		FromAirport:    airport(raw, shipmentAliases, "from_airport"),
		ToAirport:      airport(raw, shipmentAliases, "to_airport"),
		FromCity:       str(raw, shipmentAliases, "from_city"),
		FromCountry:    str(raw, shipmentAliases, "from_country"),
		ToCity:         str(raw, shipmentAliases, "to_city"),
		ToCountry:      str(raw, shipmentAliases, "to_country"),
		Deadline:       date(raw, shipmentAliases, "deadline"),
		ItemTitle:      str(raw, shipmentAliases, "title"),
		ItemDesc:       str(raw, shipmentAliases, "description"),
		Category:       str(raw, shipmentAliases, "category"),
		Weight:         num(raw, shipmentAliases, "weight"),
		ProductURL:     str(raw, shipmentAliases, "product_url"),
		ImageRef:       str(raw, shipmentAliases, "image_ref"),
		BudgetAmount:   num(raw, shipmentAliases, "budget_amount"),
		BudgetCurrency: str(raw, shipmentAliases, "budget_currency"),
		Status:         domain.ShipmentStatus(strings.ToUpper(str(raw, shipmentAliases, "status"))),
	}
}

// resolve returns the first value present under the canonical key, then
// under each alias in order.
func resolve(raw Raw, aliases map[string][]string, key string) (any, bool) {
	if v, ok := raw[key]; ok && v != nil {
		return v, true
	}
	for _, alias := range aliases[key] {
		if v, ok := raw[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(raw Raw, aliases map[string][]string, key string) string {
	v, ok := resolve(raw, aliases, key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func airport(raw Raw, aliases map[string][]string, key string) string {
	return strings.ToUpper(str(raw, aliases, key))
}

// num parses numeric fields permissively: JSON numbers, integers and
// numeric strings all count. Non-finite values become zero, never NaN.
func num(raw Raw, aliases map[string][]string, key string) float64 {
	v, ok := resolve(raw, aliases, key)
	if !ok {
		return 0
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func date(raw Raw, aliases map[string][]string, key string) time.Time {
	v, ok := resolve(raw, aliases, key)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func strs(raw Raw, aliases map[string][]string, key string) []string {
	v, ok := resolve(raw, aliases, key)
	if !ok {
		return nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			out = append(out, strings.TrimSpace(s))
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
