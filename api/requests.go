package api

import (
	"net/http"
	"time"

	"github.com/avelkov/carrylink/internal/auth"
	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/service/match"
	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	service match.MatchUseCase
}

func NewRequestHandler(service match.MatchUseCase) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Register(router *gin.RouterGroup) {
	router.POST("/listings/:id/requests", h.submit)
	router.GET("/listings/:id/requests", h.listForTrip)
	router.GET("/requests/mine", h.listMine)
	router.POST("/requests/:id/accept", h.accept)
	router.POST("/requests/:id/reject", h.reject)
	router.DELETE("/requests/:id", h.cancel)
	router.PATCH("/requests/:id/offer", h.updateOffer)
}

type submitRequest struct {
	ShipmentID    string  `json:"shipment_id"`
	OfferAmount   float64 `json:"offer_amount"`
	OfferCurrency string  `json:"offer_currency"`
	Note          string  `json:"note"`
}

type offerRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Note     string  `json:"note"`
}

type requestResponse struct {
	ID          string       `json:"id"`
	TripID      string       `json:"trip_id"`
	ShipmentID  string       `json:"shipment_id"`
	RequesterID string       `json:"requester_id"`
	OwnerID     string       `json:"owner_id"`
	Offer       domain.Offer `json:"offer"`
	Status      string       `json:"status"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

func toRequestResponse(m *domain.MatchRequest) requestResponse {
	return requestResponse{
		ID:          m.ID,
		TripID:      m.TripID,
		ShipmentID:  m.ShipmentID,
		RequesterID: m.RequesterID,
		OwnerID:     m.OwnerID,
		Offer:       m.Offer,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   m.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *RequestHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SubmitOrUpdate(c.Request.Context(), auth.ActorID(c), match.SubmitInput{
		TripID:     c.Param("id"),
		ShipmentID: req.ShipmentID,
		Offer: domain.Offer{
			Amount:   req.OfferAmount,
			Currency: req.OfferCurrency,
			Note:     req.Note,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Already {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"request": toRequestResponse(result.Request), "already": result.Already})
}

func (h *RequestHandler) listForTrip(c *gin.Context) {
	requests, err := h.service.ListForTrip(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (h *RequestHandler) listMine(c *gin.Context) {
	requests, err := h.service.ListMine(c.Request.Context(), auth.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (h *RequestHandler) accept(c *gin.Context) {
	request, err := h.service.Accept(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(request))
}

func (h *RequestHandler) reject(c *gin.Context) {
	request, err := h.service.Reject(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(request))
}

func (h *RequestHandler) cancel(c *gin.Context) {
	request, err := h.service.Cancel(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(request))
}

func (h *RequestHandler) updateOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.UpdateOffer(c.Request.Context(), auth.ActorID(c), c.Param("id"), domain.Offer{
		Amount:   req.Amount,
		Currency: req.Currency,
		Note:     req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(request))
}
