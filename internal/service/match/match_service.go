package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/kafka"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/google/uuid"
)

type MatchUseCase interface {
	// SubmitOrUpdate is the actor-facing submission entry. A repeat
	// submission against the same trip updates the existing pending request
	// instead of creating a second one; Result.Already reports which happened.
	SubmitOrUpdate(ctx context.Context, actorID string, input SubmitInput) (*Result, error)
	UpdateOffer(ctx context.Context, actorID, requestID string, offer domain.Offer) (*domain.MatchRequest, error)
	Accept(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error)
	Reject(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error)
	Cancel(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error)
	ListForTrip(ctx context.Context, actorID, tripID string) ([]domain.MatchRequest, error)
	ListMine(ctx context.Context, actorID string) ([]domain.MatchRequest, error)
}

type Cache interface {
	AcquireSubmitLock(ctx context.Context, tripID, shipmentID string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, tripID, shipmentID string) error
	InvalidateListings(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SubmitInput struct {
	TripID     string       `json:"trip_id"`
	ShipmentID string       `json:"shipment_id"`
	Offer      domain.Offer `json:"offer"`
}

type Result struct {
	Request *domain.MatchRequest
	Already bool
}

type MatchService struct {
	requests           repository.RequestRepository
	trips              repository.TripRepository
	shipments          repository.ShipmentRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	submitLockTTL      time.Duration
}

type MatchServiceOption func(*MatchService)

func WithNotificationsTopic(topic string) MatchServiceOption {
	return func(s *MatchService) {
		s.notificationsTopic = topic
	}
}

func NewMatchService(
	requests repository.RequestRepository,
	trips repository.TripRepository,
	shipments repository.ShipmentRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	submitLockTTL time.Duration,
	opts ...MatchServiceOption,
) *MatchService {
	service := &MatchService{
		requests:      requests,
		trips:         trips,
		shipments:     shipments,
		cache:         cache,
		producer:      producer,
		eventsTopic:   eventsTopic,
		submitLockTTL: submitLockTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *MatchService) SubmitOrUpdate(ctx context.Context, actorID string, input SubmitInput) (*Result, error) {
	if err := validateOffer(input.Offer); err != nil {
		return nil, err
	}

	existing, err := s.requests.GetActiveByRequester(ctx, input.TripID, actorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.Status == domain.RequestStatusPending {
		updated, err := s.UpdateOffer(ctx, actorID, existing.ID, input.Offer)
		if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
			// The request resolved between our read and the update; a fresh
			// submission is the corrective action. Fall back exactly once.
			return s.submit(ctx, actorID, input)
		}
		if err != nil {
			return nil, err
		}
		return &Result{Request: updated, Already: true}, nil
	}

	return s.submit(ctx, actorID, input)
}

func (s *MatchService) submit(ctx context.Context, actorID string, input SubmitInput) (*Result, error) {
	trip, err := s.trips.GetByID(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip.OwnerID == actorID {
		return nil, fmt.Errorf("%w: cannot request own trip", domain.ErrUnauthorized)
	}
	if !trip.VisibleInExplore() {
		return nil, fmt.Errorf("%w: trip is no longer open", domain.ErrInvalidState)
	}

	shipment, err := s.shipments.GetByID(ctx, input.ShipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.OwnerID != actorID {
		return nil, fmt.Errorf("%w: shipment belongs to another actor", domain.ErrUnauthorized)
	}
	if !shipment.UsableForRequest() {
		return nil, fmt.Errorf("%w: shipment is not open for requests", domain.ErrValidation)
	}

	if s.cache != nil {
		ok, err := s.cache.AcquireSubmitLock(ctx, input.TripID, input.ShipmentID, s.submitLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: a submission for this pair is already in flight", domain.ErrInvalidState)
		}
		defer func() {
			_ = s.cache.ReleaseSubmitLock(ctx, input.TripID, input.ShipmentID)
		}()
	}

	// Idempotent resubmission: an active request for this pair absorbs the
	// new offer rather than duplicating the row.
	if active, err := s.requests.GetActive(ctx, input.TripID, input.ShipmentID); err == nil {
		if active.Status != domain.RequestStatusPending {
			return nil, fmt.Errorf("%w: request already %s", domain.ErrInvalidState, active.Status)
		}
		if active.RequesterID != actorID {
			return nil, fmt.Errorf("%w: pair already requested by another actor", domain.ErrUnauthorized)
		}
		updated, err := s.requests.UpdateOffer(ctx, active.ID, input.Offer)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, "request_updated", updated)
		return &Result{Request: updated, Already: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	request := &domain.MatchRequest{
		ID:          uuid.NewString(),
		TripID:      input.TripID,
		ShipmentID:  input.ShipmentID,
		RequesterID: actorID,
		OwnerID:     trip.OwnerID,
		Offer:       input.Offer,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.publish(ctx, "request_submitted", request)
	s.invalidate(ctx)
	return &Result{Request: request}, nil
}

// UpdateOffer renegotiates a pending request. Anything past PENDING refuses;
// the recovery is a fresh submission, which SubmitOrUpdate performs.
func (s *MatchService) UpdateOffer(ctx context.Context, actorID, requestID string, offer domain.Offer) (*domain.MatchRequest, error) {
	if err := validateOffer(offer); err != nil {
		return nil, err
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester may update the offer", domain.ErrUnauthorized)
	}

	updated, err := s.requests.UpdateOffer(ctx, requestID, offer)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "request_updated", updated)
	return updated, nil
}

func (s *MatchService) Accept(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != actorID {
		return nil, fmt.Errorf("%w: only the trip owner may accept", domain.ErrUnauthorized)
	}

	accepted, err := s.requests.Accept(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "request_accepted", accepted)
	s.invalidate(ctx)
	return accepted, nil
}

func (s *MatchService) Reject(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != actorID {
		return nil, fmt.Errorf("%w: only the trip owner may reject", domain.ErrUnauthorized)
	}

	rejected, err := s.requests.Transition(ctx, requestID, domain.RequestStatusRejected)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "request_rejected", rejected)
	s.invalidate(ctx)
	return rejected, nil
}

func (s *MatchService) Cancel(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester may cancel", domain.ErrUnauthorized)
	}

	cancelled, err := s.requests.Transition(ctx, requestID, domain.RequestStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "request_cancelled", cancelled)
	s.invalidate(ctx)
	return cancelled, nil
}

// ListForTrip shows the trip owner every request; anyone else sees only
// their own.
func (s *MatchService) ListForTrip(ctx context.Context, actorID, tripID string) ([]domain.MatchRequest, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	requests, err := s.requests.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OwnerID == actorID {
		return requests, nil
	}

	mine := make([]domain.MatchRequest, 0)
	for _, r := range requests {
		if r.RequesterID == actorID {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

func (s *MatchService) ListMine(ctx context.Context, actorID string) ([]domain.MatchRequest, error) {
	return s.requests.ListByRequester(ctx, actorID)
}

func (s *MatchService) publish(ctx context.Context, eventType string, request *domain.MatchRequest) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.MatchEvent{
		Type:        eventType,
		RequestID:   request.ID,
		TripID:      request.TripID,
		ShipmentID:  request.ShipmentID,
		RequesterID: request.RequesterID,
		OwnerID:     request.OwnerID,
		Status:      string(request.Status),
		Amount:      request.Offer.Amount,
		Currency:    request.Offer.Currency,
		OccurredAt:  time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, request.ID, event); err != nil {
		log.Printf("publish %s for request %s: %v", eventType, request.ID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, request.ID, event); err != nil {
			log.Printf("publish notification for request %s: %v", request.ID, err)
		}
	}
}

func (s *MatchService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateListings(ctx)
	}
}

func validateOffer(offer domain.Offer) error {
	if offer.Amount <= 0 || math.IsNaN(offer.Amount) || math.IsInf(offer.Amount, 0) {
		return fmt.Errorf("%w: offer amount must be a positive finite number", domain.ErrValidation)
	}
	if offer.Currency == "" {
		return fmt.Errorf("%w: offer currency is required", domain.ErrValidation)
	}
	return nil
}

var _ MatchUseCase = (*MatchService)(nil)
