package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avelkov/carrylink/internal/auth"
	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/normalize"
	"github.com/avelkov/carrylink/internal/service/listings"
	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	service listings.ListingUseCase
}

func NewListingHandler(service listings.ListingUseCase) *ListingHandler {
	return &ListingHandler{service: service}
}

func (h *ListingHandler) Register(router *gin.RouterGroup) {
	router.GET("/listings", h.explore)
	router.GET("/listings/:id", h.detail)
	router.POST("/listings/trips", h.createTrip)
	router.POST("/listings/shipments", h.createShipment)
	router.PUT("/listings/trips/:id", h.updateTrip)
	router.PUT("/listings/shipments/:id", h.updateShipment)
	router.DELETE("/listings/:id", h.delete)
	router.PUT("/listings/:id/save", h.save)
	router.DELETE("/listings/:id/save", h.unsave)
	router.GET("/saved", h.saved)
	router.GET("/shipments/mine", h.myShipments)
}

type tripResponse struct {
	ID              string   `json:"id"`
	OwnerID         string   `json:"owner_id"`
	FromAirport     string   `json:"from_airport"`
	ToAirport       string   `json:"to_airport"`
	TravelDate      string   `json:"travel_date"`
	ArrivalDate     string   `json:"arrival_date"`
	AvailableWeight float64  `json:"available_weight"`
	Airline         string   `json:"airline"`
	FlightNumber    string   `json:"flight_number"`
	MeetPreference  string   `json:"meet_preference"`
	MeetPlace       string   `json:"meet_place,omitempty"`
	Prohibited      []string `json:"prohibited"`
	Status          string   `json:"status"`
	RequestsCount   int      `json:"requests_count"`
	Locked          bool     `json:"locked"`
}

type shipmentResponse struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	FromAirport    string  `json:"from_airport"`
	ToAirport      string  `json:"to_airport"`
	FromCity       string  `json:"from_city,omitempty"`
	FromCountry    string  `json:"from_country,omitempty"`
	ToCity         string  `json:"to_city,omitempty"`
	ToCountry      string  `json:"to_country,omitempty"`
	Deadline       string  `json:"deadline"`
	ItemTitle      string  `json:"item_title"`
	ItemDesc       string  `json:"item_description"`
	Category       string  `json:"category"`
	Weight         float64 `json:"weight"`
	ProductURL     string  `json:"product_url,omitempty"`
	ImageRef       string  `json:"image_ref,omitempty"`
	BudgetAmount   float64 `json:"budget_amount"`
	BudgetCurrency string  `json:"budget_currency"`
	Status         string  `json:"status"`
}

type detailResponse struct {
	Kind            string            `json:"kind"`
	Trip            *tripResponse     `json:"trip,omitempty"`
	Shipment        *shipmentResponse `json:"shipment,omitempty"`
	RequestsCount   int               `json:"requests_count"`
	IsOwner         bool              `json:"is_owner"`
	Locked          bool              `json:"locked"`
	CanChat         bool              `json:"can_chat"`
	MyRequestID     string            `json:"my_request_id,omitempty"`
	MyRequestStatus string            `json:"my_request_status,omitempty"`
}

func toTripResponse(t *domain.Trip) *tripResponse {
	return &tripResponse{
		ID:              t.ID,
		OwnerID:         t.OwnerID,
		FromAirport:     t.FromAirport,
		ToAirport:       t.ToAirport,
		TravelDate:      t.TravelDate.Format(time.RFC3339),
		ArrivalDate:     t.ArrivalDate.Format(time.RFC3339),
		AvailableWeight: t.AvailableWeight,
		Airline:         t.Airline,
		FlightNumber:    t.FlightNumber,
		MeetPreference:  string(t.MeetPreference),
		MeetPlace:       t.MeetPlace,
		Prohibited:      t.Prohibited,
		Status:          string(t.Status),
		RequestsCount:   t.RequestsCount,
		Locked:          t.Locked(),
	}
}

func toShipmentResponse(s *domain.Shipment) *shipmentResponse {
	return &shipmentResponse{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		FromAirport:    s.FromAirport,
		ToAirport:      s.ToAirport,
		FromCity:       s.FromCity,
		FromCountry:    s.FromCountry,
		ToCity:         s.ToCity,
		ToCountry:      s.ToCountry,
		Deadline:       s.Deadline.Format(time.RFC3339),
		ItemTitle:      s.ItemTitle,
		ItemDesc:       s.ItemDesc,
		Category:       s.Category,
		Weight:         s.Weight,
		ProductURL:     s.ProductURL,
		ImageRef:       s.ImageRef,
		BudgetAmount:   s.BudgetAmount,
		BudgetCurrency: s.BudgetCurrency,
		Status:         string(s.Status),
	}
}

func (h *ListingHandler) explore(c *gin.Context) {
	filter := listings.Filter{
		Query:       c.Query("q"),
		FromAirport: c.Query("from"),
		ToAirport:   c.Query("to"),
	}
	if v := c.Query("date_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateFrom = t
		}
	}
	if v := c.Query("date_to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateTo = t
		}
	}
	if v := c.Query("min_weight"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinWeight = w
		}
	}

	result, err := h.service.Explore(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	// The kind tab is a view concern; both kinds come from the same cached
	// query.
	kind := c.Query("type")
	trips := make([]*tripResponse, 0, len(result.Trips))
	if kind != "shipments" {
		for i := range result.Trips {
			trips = append(trips, toTripResponse(&result.Trips[i]))
		}
	}
	shipments := make([]*shipmentResponse, 0, len(result.Shipments))
	if kind != "trips" {
		for i := range result.Shipments {
			shipments = append(shipments, toShipmentResponse(&result.Shipments[i]))
		}
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips, "shipments": shipments})
}

func (h *ListingHandler) detail(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := detailResponse{
		Kind:            detail.Kind,
		RequestsCount:   detail.RequestsCount,
		IsOwner:         detail.IsOwner,
		Locked:          detail.Locked,
		CanChat:         detail.CanChat,
		MyRequestID:     detail.MyRequestID,
		MyRequestStatus: string(detail.MyRequestStatus),
	}
	if detail.Trip != nil {
		resp.Trip = toTripResponse(detail.Trip)
	}
	if detail.Shipment != nil {
		resp.Shipment = toShipmentResponse(detail.Shipment)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) createTrip(c *gin.Context) {
	var raw normalize.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := h.service.CreateTrip(c.Request.Context(), auth.ActorID(c), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTripResponse(trip))
}

func (h *ListingHandler) createShipment(c *gin.Context) {
	var raw normalize.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shipment, err := h.service.CreateShipment(c.Request.Context(), auth.ActorID(c), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toShipmentResponse(shipment))
}

func (h *ListingHandler) updateTrip(c *gin.Context) {
	var raw normalize.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := h.service.UpdateTrip(c.Request.Context(), auth.ActorID(c), c.Param("id"), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func (h *ListingHandler) updateShipment(c *gin.Context) {
	var raw normalize.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shipment, err := h.service.UpdateShipment(c.Request.Context(), auth.ActorID(c), c.Param("id"), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toShipmentResponse(shipment))
}

func (h *ListingHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.ActorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) save(c *gin.Context) {
	if err := h.service.Save(c.Request.Context(), auth.ActorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingHandler) unsave(c *gin.Context) {
	if err := h.service.Unsave(c.Request.Context(), auth.ActorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// myShipments backs the submit flow: the actor picks one of their open
// shipments to attach to a request.
func (h *ListingHandler) myShipments(c *gin.Context) {
	shipments, err := h.service.MyOpenShipments(c.Request.Context(), auth.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]*shipmentResponse, 0, len(shipments))
	for i := range shipments {
		out = append(out, toShipmentResponse(&shipments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"shipments": out})
}

func (h *ListingHandler) saved(c *gin.Context) {
	ids, err := h.service.Saved(c.Request.Context(), auth.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_ids": ids})
}
