package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/service/match"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMatchUseCase struct {
	mock.Mock
}

func (m *MockMatchUseCase) SubmitOrUpdate(ctx context.Context, actorID string, input match.SubmitInput) (*match.Result, error) {
	args := m.Called(ctx, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Result), args.Error(1)
}

func (m *MockMatchUseCase) UpdateOffer(ctx context.Context, actorID, requestID string, offer domain.Offer) (*domain.MatchRequest, error) {
	args := m.Called(ctx, actorID, requestID, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockMatchUseCase) Accept(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockMatchUseCase) Reject(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockMatchUseCase) Cancel(ctx context.Context, actorID, requestID string) (*domain.MatchRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRequest), args.Error(1)
}

func (m *MockMatchUseCase) ListForTrip(ctx context.Context, actorID, tripID string) ([]domain.MatchRequest, error) {
	args := m.Called(ctx, actorID, tripID)
	return args.Get(0).([]domain.MatchRequest), args.Error(1)
}

func (m *MockMatchUseCase) ListMine(ctx context.Context, actorID string) ([]domain.MatchRequest, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).([]domain.MatchRequest), args.Error(1)
}

func newRequestRouter(actorID string, service match.MatchUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		c.Set("actor_id", actorID)
	})
	NewRequestHandler(service).Register(group)
	return router
}

func TestSubmitEndpoint_Created(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	request := &domain.MatchRequest{
		ID:          "req-1",
		TripID:      "trip-1",
		ShipmentID:  "ship-1",
		RequesterID: "sender-1",
		OwnerID:     "owner-1",
		Offer:       domain.Offer{Amount: 50, Currency: "USD"},
		Status:      domain.RequestStatusPending,
	}
	mockService.On("SubmitOrUpdate", mock.Anything, "sender-1", match.SubmitInput{
		TripID:     "trip-1",
		ShipmentID: "ship-1",
		Offer:      domain.Offer{Amount: 50, Currency: "USD"},
	}).Return(&match.Result{Request: request}, nil).Once()

	body, _ := json.Marshal(map[string]any{
		"shipment_id":    "ship-1",
		"offer_amount":   50,
		"offer_currency": "USD",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/listings/trip-1/requests", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Request requestResponse `json:"request"`
		Already bool            `json:"already"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Already)
	assert.Equal(t, "req-1", resp.Request.ID)
	assert.Equal(t, "PENDING", resp.Request.Status)
	mockService.AssertExpectations(t)
}

func TestSubmitEndpoint_RepeatReturnsOK(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	request := &domain.MatchRequest{ID: "req-1", Status: domain.RequestStatusPending}
	mockService.On("SubmitOrUpdate", mock.Anything, "sender-1", mock.Anything).
		Return(&match.Result{Request: request, Already: true}, nil).Once()

	body, _ := json.Marshal(map[string]any{
		"shipment_id":    "ship-1",
		"offer_amount":   60,
		"offer_currency": "USD",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/listings/trip-1/requests", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Already bool `json:"already"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Already)
}

func TestSubmitEndpoint_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad offer", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: own trip", domain.ErrUnauthorized), http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: trip closed", domain.ErrInvalidState), http.StatusConflict},
	}

	for _, tc := range cases {
		mockService := &MockMatchUseCase{}
		router := newRequestRouter("sender-1", mockService)
		mockService.On("SubmitOrUpdate", mock.Anything, "sender-1", mock.Anything).Return(nil, tc.err).Once()

		body, _ := json.Marshal(map[string]any{"shipment_id": "ship-1", "offer_amount": 10, "offer_currency": "USD"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/listings/trip-1/requests", bytes.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, tc.code, w.Code, "error %v", tc.err)
	}
}

func TestAcceptEndpoint_Success(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("owner-1", mockService)

	accepted := &domain.MatchRequest{ID: "req-1", Status: domain.RequestStatusAccepted}
	mockService.On("Accept", mock.Anything, "owner-1", "req-1").Return(accepted, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/accept", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp requestResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ACCEPTED", resp.Status)
}

func TestAcceptEndpoint_NonOwnerForbidden(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	mockService.On("Accept", mock.Anything, "sender-1", "req-1").
		Return(nil, fmt.Errorf("%w: only the trip owner may accept", domain.ErrUnauthorized)).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/accept", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelEndpoint_ResolvedRequestConflicts(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	mockService.On("Cancel", mock.Anything, "sender-1", "req-1").
		Return(nil, fmt.Errorf("%w: request already resolved", domain.ErrInvalidState)).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/requests/req-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListMineEndpoint(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	mockService.On("ListMine", mock.Anything, "sender-1").Return([]domain.MatchRequest{
		{ID: "req-1", Status: domain.RequestStatusPending},
		{ID: "req-2", Status: domain.RequestStatusRejected},
	}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/requests/mine", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Requests []requestResponse `json:"requests"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Requests, 2)
}

func TestUpdateOfferEndpoint(t *testing.T) {
	mockService := &MockMatchUseCase{}
	router := newRequestRouter("sender-1", mockService)

	updated := &domain.MatchRequest{
		ID:     "req-1",
		Offer:  domain.Offer{Amount: 80, Currency: "USD"},
		Status: domain.RequestStatusPending,
	}
	mockService.On("UpdateOffer", mock.Anything, "sender-1", "req-1", domain.Offer{Amount: 80, Currency: "USD"}).
		Return(updated, nil).Once()

	body, _ := json.Marshal(map[string]any{"amount": 80, "currency": "USD"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/requests/req-1/offer", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp requestResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 80.0, resp.Offer.Amount)
}
