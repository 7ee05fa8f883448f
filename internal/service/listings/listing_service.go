package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avelkov/carrylink/internal/cache"
	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/normalize"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/google/uuid"
)

type Filter struct {
	Query       string
	FromAirport string
	ToAirport   string
	DateFrom    time.Time
	DateTo      time.Time
	MinWeight   float64
}

func (f Filter) empty() bool {
	return f == Filter{}
}

// Detail is the listing view the client drives the workflow from. CanChat
// and MyRequestStatus are server-computed; the client's own gate is only an
// optimistic prediction.
type Detail struct {
	Kind            string
	Trip            *domain.Trip
	Shipment        *domain.Shipment
	RequestsCount   int
	IsOwner         bool
	Locked          bool
	CanChat         bool
	MyRequestID     string
	MyRequestStatus domain.RequestStatus
}

type ListingUseCase interface {
	Explore(ctx context.Context, filter Filter) (*cache.Listings, error)
	Detail(ctx context.Context, actorID, id string) (*Detail, error)
	CreateTrip(ctx context.Context, actorID string, raw normalize.Raw) (*domain.Trip, error)
	CreateShipment(ctx context.Context, actorID string, raw normalize.Raw) (*domain.Shipment, error)
	UpdateTrip(ctx context.Context, actorID, id string, raw normalize.Raw) (*domain.Trip, error)
	UpdateShipment(ctx context.Context, actorID, id string, raw normalize.Raw) (*domain.Shipment, error)
	Delete(ctx context.Context, actorID, id string) error
	// MyOpenShipments lists the actor's shipments still usable for a new
	// request; the submit flow picks from these.
	MyOpenShipments(ctx context.Context, actorID string) ([]domain.Shipment, error)
	Save(ctx context.Context, actorID, id string) error
	Unsave(ctx context.Context, actorID, id string) error
	Saved(ctx context.Context, actorID string) ([]string, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

type Cache interface {
	GetListings(ctx context.Context) (*cache.Listings, error)
	SetListings(ctx context.Context, listings *cache.Listings) error
	InvalidateListings(ctx context.Context) error
	SaveListing(ctx context.Context, actorID, listingID string) error
	UnsaveListing(ctx context.Context, actorID, listingID string) error
	SavedListings(ctx context.Context, actorID string) ([]string, error)
}

type ListingService struct {
	trips     repository.TripRepository
	shipments repository.ShipmentRepository
	requests  repository.RequestRepository
	cache     Cache
}

func NewListingService(
	trips repository.TripRepository,
	shipments repository.ShipmentRepository,
	requests repository.RequestRepository,
	cache Cache,
) *ListingService {
	return &ListingService{trips: trips, shipments: shipments, requests: requests, cache: cache}
}

// Explore returns the discoverable listings: anything whose status left OPEN
// is excluded at the query level. Only the unfiltered view is cached.
func (s *ListingService) Explore(ctx context.Context, filter Filter) (*cache.Listings, error) {
	if s.cache != nil && filter.empty() {
		if cached, err := s.cache.GetListings(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	trips, err := s.trips.ListOpen(ctx, repository.TripFilter{
		Query:       filter.Query,
		FromAirport: filter.FromAirport,
		ToAirport:   filter.ToAirport,
		DateFrom:    filter.DateFrom,
		DateTo:      filter.DateTo,
		MinWeight:   filter.MinWeight,
	})
	if err != nil {
		return nil, err
	}
	shipments, err := s.shipments.ListOpen(ctx, repository.ShipmentFilter{
		Query:       filter.Query,
		FromAirport: filter.FromAirport,
		ToAirport:   filter.ToAirport,
		DateFrom:    filter.DateFrom,
		DateTo:      filter.DateTo,
	})
	if err != nil {
		return nil, err
	}

	listings := &cache.Listings{Trips: trips, Shipments: shipments}
	if s.cache != nil && filter.empty() {
		_ = s.cache.SetListings(ctx, listings)
	}
	return listings, nil
}

func (s *ListingService) Detail(ctx context.Context, actorID, id string) (*Detail, error) {
	if trip, err := s.trips.GetByID(ctx, id); err == nil {
		return s.tripDetail(ctx, actorID, trip)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	shipment, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.shipmentDetail(ctx, actorID, shipment)
}

func (s *ListingService) tripDetail(ctx context.Context, actorID string, trip *domain.Trip) (*Detail, error) {
	detail := &Detail{
		Kind:          "trip",
		Trip:          trip,
		RequestsCount: trip.RequestsCount,
		IsOwner:       actorID == trip.OwnerID,
		Locked:        trip.Locked(),
	}

	if actorID != trip.OwnerID {
		mine, err := s.requests.GetActiveByRequester(ctx, trip.ID, actorID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if mine != nil {
			detail.MyRequestID = mine.ID
			detail.MyRequestStatus = mine.Status
		}
	}

	accepted, err := s.acceptedRequest(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	detail.CanChat = domain.CanChat(trip.OwnerID, actorID, accepted)
	return detail, nil
}

func (s *ListingService) shipmentDetail(ctx context.Context, actorID string, shipment *domain.Shipment) (*Detail, error) {
	detail := &Detail{
		Kind:     "shipment",
		Shipment: shipment,
		IsOwner:  actorID == shipment.OwnerID,
	}

	accepted, err := s.acceptedRequest(ctx, shipment.ID)
	if err != nil {
		return nil, err
	}
	if accepted != nil && accepted.OwnerID == actorID {
		detail.MyRequestID = accepted.ID
		detail.MyRequestStatus = accepted.Status
	}
	detail.CanChat = domain.CanChat(shipment.OwnerID, actorID, accepted)
	return detail, nil
}

func (s *ListingService) acceptedRequest(ctx context.Context, listingID string) (*domain.MatchRequest, error) {
	accepted, err := s.requests.GetAcceptedForListing(ctx, listingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *ListingService) CreateTrip(ctx context.Context, actorID string, raw normalize.Raw) (*domain.Trip, error) {
	trip := normalize.Trip(raw)
	trip.ID = uuid.NewString()
	trip.OwnerID = actorID

	if err := validateTrip(&trip); err != nil {
		return nil, err
	}
	if err := s.trips.Create(ctx, &trip); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &trip, nil
}

func (s *ListingService) CreateShipment(ctx context.Context, actorID string, raw normalize.Raw) (*domain.Shipment, error) {
	shipment := normalize.Shipment(raw)
	shipment.ID = uuid.NewString()
	shipment.OwnerID = actorID

	if err := validateShipment(&shipment); err != nil {
		return nil, err
	}
	if err := s.shipments.Create(ctx, &shipment); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &shipment, nil
}

func (s *ListingService) UpdateTrip(ctx context.Context, actorID, id string, raw normalize.Raw) (*domain.Trip, error) {
	trip := normalize.Trip(raw)
	trip.ID = id
	trip.OwnerID = actorID

	if err := validateTrip(&trip); err != nil {
		return nil, err
	}
	if err := s.trips.Update(ctx, &trip); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.trips.GetByID(ctx, id)
}

func (s *ListingService) UpdateShipment(ctx context.Context, actorID, id string, raw normalize.Raw) (*domain.Shipment, error) {
	shipment := normalize.Shipment(raw)
	shipment.ID = id
	shipment.OwnerID = actorID

	if err := validateShipment(&shipment); err != nil {
		return nil, err
	}
	if err := s.shipments.Update(ctx, &shipment); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.shipments.GetByID(ctx, id)
}

// Delete removes the actor's own listing, whichever kind it is. Locked
// listings refuse deletion at the database level.
func (s *ListingService) Delete(ctx context.Context, actorID, id string) error {
	err := s.trips.Delete(ctx, id, actorID)
	if err == nil {
		s.invalidate(ctx)
		return nil
	}
	if !errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	// Either a locked trip, someone else's trip, or not a trip at all; try
	// the other kind before reporting the conflict.
	if trip, tripErr := s.trips.GetByID(ctx, id); tripErr == nil {
		if trip.OwnerID != actorID {
			return domain.ErrUnauthorized
		}
		return domain.ErrInvalidState
	}
	if err := s.shipments.Delete(ctx, id, actorID); err != nil {
		if !errors.Is(err, domain.ErrInvalidState) {
			return err
		}
		shipment, getErr := s.shipments.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if shipment.OwnerID != actorID {
			return domain.ErrUnauthorized
		}
		return domain.ErrInvalidState
	}
	s.invalidate(ctx)
	return nil
}

func (s *ListingService) MyOpenShipments(ctx context.Context, actorID string) ([]domain.Shipment, error) {
	return s.shipments.ListOpenByOwner(ctx, actorID)
}

func (s *ListingService) Save(ctx context.Context, actorID, id string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.SaveListing(ctx, actorID, id)
}

func (s *ListingService) Unsave(ctx context.Context, actorID, id string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.UnsaveListing(ctx, actorID, id)
}

func (s *ListingService) Saved(ctx context.Context, actorID string) ([]string, error) {
	if s.cache == nil {
		return []string{}, nil
	}
	return s.cache.SavedListings(ctx, actorID)
}

// ExpireOverdue cancels open trips whose travel date passed and open
// shipments past their deadline. Run periodically by the worker.
func (s *ListingService) ExpireOverdue(ctx context.Context) (int, error) {
	now := time.Now()

	trips, err := s.trips.ExpireOpenBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	shipments, err := s.shipments.ExpireOpenBefore(ctx, now)
	if err != nil {
		return len(trips), err
	}

	if len(trips)+len(shipments) > 0 {
		s.invalidate(ctx)
	}
	return len(trips) + len(shipments), nil
}

func (s *ListingService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateListings(ctx)
	}
}

func validateTrip(trip *domain.Trip) error {
	switch {
	case trip.FromAirport == "" || trip.ToAirport == "":
		return fmt.Errorf("%w: route airports are required", domain.ErrValidation)
	case trip.TravelDate.IsZero() || trip.ArrivalDate.IsZero():
		return fmt.Errorf("%w: travel and arrival dates are required", domain.ErrValidation)
	case trip.AvailableWeight <= 0:
		return fmt.Errorf("%w: available weight must be positive", domain.ErrValidation)
	case trip.Airline == "" || trip.FlightNumber == "":
		return fmt.Errorf("%w: carrier info is required", domain.ErrValidation)
	}

	switch trip.MeetPreference {
	case domain.MeetAtAirport, domain.MeetInCity:
	case domain.MeetNearby:
		if trip.MeetPlace == "" {
			return fmt.Errorf("%w: meet place is required for nearby meetings", domain.ErrValidation)
		}
	case "":
		trip.MeetPreference = domain.MeetAtAirport
	default:
		return fmt.Errorf("%w: unknown meet preference %q", domain.ErrValidation, trip.MeetPreference)
	}
	return nil
}

func validateShipment(shipment *domain.Shipment) error {
	switch {
	case shipment.FromAirport == "" || shipment.ToAirport == "":
		return fmt.Errorf("%w: route airports are required", domain.ErrValidation)
	case shipment.Deadline.IsZero():
		return fmt.Errorf("%w: delivery deadline is required", domain.ErrValidation)
	case shipment.ItemTitle == "" || shipment.ItemDesc == "" || shipment.Category == "":
		return fmt.Errorf("%w: item title, description and category are required", domain.ErrValidation)
	case shipment.Weight <= 0:
		return fmt.Errorf("%w: item weight must be positive", domain.ErrValidation)
	}
	return nil
}

var _ ListingUseCase = (*ListingService)(nil)
