package api

import (
	"log"
	"net/http"
	"time"

	"github.com/avelkov/carrylink/internal/auth"
	"github.com/avelkov/carrylink/internal/domain"
	"github.com/avelkov/carrylink/internal/service/chat"
	"github.com/avelkov/carrylink/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type MessageHandler struct {
	service chat.ChatUseCase
	hub     *ws.Hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewMessageHandler(service chat.ChatUseCase, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{service: service, hub: hub}
}

func (h *MessageHandler) Register(router *gin.RouterGroup) {
	router.GET("/listings/:id/messages", h.list)
	router.POST("/listings/:id/messages", h.send)
	router.GET("/ws", h.subscribe)
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type messageResponse struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func toMessageResponse(m *domain.ChatMessage) messageResponse {
	return messageResponse{
		ID:        m.ID,
		ListingID: m.ListingID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *MessageHandler) list(c *gin.Context) {
	messages, err := h.service.Messages(c.Request.Context(), auth.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *MessageHandler) send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.service.Send(c.Request.Context(), auth.ActorID(c), c.Param("id"), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(message))
}

// subscribe upgrades to a websocket after re-checking the chat gate. The
// gate is authoritative here regardless of what the client predicted.
func (h *MessageHandler) subscribe(c *gin.Context) {
	listingID := c.Query("listing")
	if listingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing query parameter is required"})
		return
	}

	actorID := auth.ActorID(c)
	open, err := h.service.CanChat(c.Request.Context(), actorID, listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !open {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat is closed for this listing"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	h.hub.Serve(conn, actorID, listingID)
}
