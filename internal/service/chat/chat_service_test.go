package chat

import (
	"context"
	"testing"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) ListByListing(ctx context.Context, listingID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *MockMessageRepository) Append(ctx context.Context, message *domain.ChatMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, request *domain.MatchRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) GetActive(ctx context.Context, tripID, shipmentID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, tripID, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) GetActiveByRequester(ctx context.Context, tripID, requesterID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, tripID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) GetAcceptedForListing(ctx context.Context, listingID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.MatchRequest, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).([]domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.MatchRequest, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) UpdateOffer(ctx context.Context, id string, offer domain.Offer) (*domain.MatchRequest, error) {
	args := m.Called(ctx, id, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) Transition(ctx context.Context, id string, to domain.RequestStatus) (*domain.MatchRequest, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockRequestRepository) Accept(ctx context.Context, id string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) ListOpen(ctx context.Context, filter repository.TripFilter) ([]domain.Trip, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) Delete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockTripRepository) ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Trip, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) ListOpen(ctx context.Context, filter repository.ShipmentFilter) ([]domain.Shipment, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) ListOpenByOwner(ctx context.Context, ownerID string) ([]domain.Shipment, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) Delete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockShipmentRepository) ExpireOpenBefore(ctx context.Context, deadline time.Time) ([]domain.Shipment, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Shipment), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastToListing(listingID string, message domain.ChatMessage) {
	m.Called(listingID, message)
}

type chatMocks struct {
	messages  *MockMessageRepository
	requests  *MockRequestRepository
	trips     *MockTripRepository
	shipments *MockShipmentRepository
}

func newChatService(broadcaster Broadcaster) (*ChatService, chatMocks) {
	m := chatMocks{
		messages:  &MockMessageRepository{},
		requests:  &MockRequestRepository{},
		trips:     &MockTripRepository{},
		shipments: &MockShipmentRepository{},
	}
	return NewChatService(m.messages, m.requests, m.trips, m.shipments, broadcaster), m
}

func TestCanChat_OwnerAlwaysAllowed(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(nil, domain.ErrNotFound).Once()

	open, err := service.CanChat(ctx, "owner-1", "trip-1")

	assert.NoError(t, err)
	assert.True(t, open)
}

func TestCanChat_AcceptedPartiesOnly(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	accepted := &domain.MatchRequest{
		ID:          "req-1",
		RequesterID: "sender-1",
		OwnerID:     "owner-1",
		Status:      domain.RequestStatusAccepted,
	}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Twice()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(accepted, nil).Twice()

	open, err := service.CanChat(ctx, "sender-1", "trip-1")
	assert.NoError(t, err)
	assert.True(t, open)

	open, err = service.CanChat(ctx, "stranger", "trip-1")
	assert.NoError(t, err)
	assert.False(t, open)
}

func TestCanChat_ShipmentListing(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	shipment := &domain.Shipment{ID: "ship-1", OwnerID: "sender-1"}
	m.trips.On("GetByID", ctx, "ship-1").Return(nil, domain.ErrNotFound).Once()
	m.shipments.On("GetByID", ctx, "ship-1").Return(shipment, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "ship-1").Return(nil, domain.ErrNotFound).Once()

	open, err := service.CanChat(ctx, "sender-1", "ship-1")

	assert.NoError(t, err)
	assert.True(t, open)
}

func TestCanChat_UnknownListing(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	m.trips.On("GetByID", ctx, "ghost").Return(nil, domain.ErrNotFound).Once()
	m.shipments.On("GetByID", ctx, "ghost").Return(nil, domain.ErrNotFound).Once()

	_, err := service.CanChat(ctx, "owner-1", "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessages_GateClosed(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(nil, domain.ErrNotFound).Once()

	_, err := service.Messages(ctx, "sender-1", "trip-1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	m.messages.AssertNotCalled(t, "ListByListing")
}

func TestMessages_OrderedHistory(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	history := []domain.ChatMessage{
		{ID: "msg-1", ListingID: "trip-1", SenderID: "owner-1", Body: "hello"},
		{ID: "msg-2", ListingID: "trip-1", SenderID: "sender-1", Body: "hi"},
	}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(nil, domain.ErrNotFound).Once()
	m.messages.On("ListByListing", ctx, "trip-1").Return(history, nil).Once()

	messages, err := service.Messages(ctx, "owner-1", "trip-1")

	assert.NoError(t, err)
	assert.Equal(t, history, messages)
}

func TestSend_AppendsAndBroadcasts(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	service, m := newChatService(broadcaster)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(nil, domain.ErrNotFound).Once()
	m.messages.On("Append", ctx, mock.AnythingOfType("*domain.ChatMessage")).Return(nil).Once()
	broadcaster.On("BroadcastToListing", "trip-1", mock.AnythingOfType("domain.ChatMessage")).Once()

	message, err := service.Send(ctx, "owner-1", "trip-1", "  any progress?  ")

	assert.NoError(t, err)
	assert.Equal(t, "any progress?", message.Body)
	assert.Equal(t, "owner-1", message.SenderID)
	assert.NotEmpty(t, message.ID)
	broadcaster.AssertExpectations(t)
}

func TestSend_EmptyBodyRejected(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	_, err := service.Send(ctx, "owner-1", "trip-1", "   ")

	assert.ErrorIs(t, err, domain.ErrValidation)
	m.messages.AssertNotCalled(t, "Append")
}

func TestSend_PendingRequesterBlocked(t *testing.T) {
	service, m := newChatService(nil)
	ctx := context.Background()

	trip := &domain.Trip{ID: "trip-1", OwnerID: "owner-1"}
	m.trips.On("GetByID", ctx, "trip-1").Return(trip, nil).Once()
	m.requests.On("GetAcceptedForListing", ctx, "trip-1").Return(nil, domain.ErrNotFound).Once()

	_, err := service.Send(ctx, "sender-1", "trip-1", "can I ask something?")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	m.messages.AssertNotCalled(t, "Append")
}
