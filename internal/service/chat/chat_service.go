package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/google/uuid"
)

type ChatUseCase interface {
	// CanChat answers the gate for an actor/listing pair. This is the
	// authoritative check; clients may predict it but never enforce it.
	CanChat(ctx context.Context, actorID, listingID string) (bool, error)
	Messages(ctx context.Context, actorID, listingID string) ([]domain.ChatMessage, error)
	Send(ctx context.Context, actorID, listingID, body string) (*domain.ChatMessage, error)
}

// Broadcaster fans a stored message out to live subscribers. Delivery is
// best effort; the repository remains the source of truth.
type Broadcaster interface {
	BroadcastToListing(listingID string, message domain.ChatMessage)
}

type ChatService struct {
	messages    repository.MessageRepository
	requests    repository.RequestRepository
	trips       repository.TripRepository
	shipments   repository.ShipmentRepository
	broadcaster Broadcaster
}

func NewChatService(
	messages repository.MessageRepository,
	requests repository.RequestRepository,
	trips repository.TripRepository,
	shipments repository.ShipmentRepository,
	broadcaster Broadcaster,
) *ChatService {
	return &ChatService{
		messages:    messages,
		requests:    requests,
		trips:       trips,
		shipments:   shipments,
		broadcaster: broadcaster,
	}
}

func (s *ChatService) CanChat(ctx context.Context, actorID, listingID string) (bool, error) {
	ownerID, err := s.listingOwner(ctx, listingID)
	if err != nil {
		return false, err
	}

	accepted, err := s.requests.GetAcceptedForListing(ctx, listingID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	return domain.CanChat(ownerID, actorID, accepted), nil
}

func (s *ChatService) Messages(ctx context.Context, actorID, listingID string) ([]domain.ChatMessage, error) {
	if err := s.requireGate(ctx, actorID, listingID); err != nil {
		return nil, err
	}
	return s.messages.ListByListing(ctx, listingID)
}

func (s *ChatService) Send(ctx context.Context, actorID, listingID, body string) (*domain.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrValidation)
	}

	if err := s.requireGate(ctx, actorID, listingID); err != nil {
		return nil, err
	}

	message := &domain.ChatMessage{
		ID:        uuid.NewString(),
		ListingID: listingID,
		SenderID:  actorID,
		Body:      body,
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToListing(listingID, *message)
	}
	return message, nil
}

func (s *ChatService) requireGate(ctx context.Context, actorID, listingID string) error {
	open, err := s.CanChat(ctx, actorID, listingID)
	if err != nil {
		return err
	}
	if !open {
		return fmt.Errorf("%w: chat is closed for this listing", domain.ErrUnauthorized)
	}
	return nil
}

func (s *ChatService) listingOwner(ctx context.Context, listingID string) (string, error) {
	trip, err := s.trips.GetByID(ctx, listingID)
	if err == nil {
		return trip.OwnerID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	shipment, err := s.shipments.GetByID(ctx, listingID)
	if err != nil {
		return "", err
	}
	return shipment.OwnerID, nil
}

var _ ChatUseCase = (*ChatService)(nil)
