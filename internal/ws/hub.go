// Package ws fans chat messages out to live websocket subscribers. REST is
// the system of record; a dropped connection only loses liveness.
package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/avelkov/carrylink/internal/domain"
)

// Hub maintains the set of connected clients grouped by listing id.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
}

type outbound struct {
	listingID string
	payload   []byte
}

type messageEnvelope struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the rooms map; all membership changes and broadcasts go through
// this loop, so no locking is needed.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if _, ok := h.rooms[client.listingID]; !ok {
				h.rooms[client.listingID] = make(map[*Client]bool)
			}
			h.rooms[client.listingID][client] = true
		case client := <-h.unregister:
			if clients, ok := h.rooms[client.listingID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.listingID)
					}
				}
			}
		case out := <-h.broadcast:
			for client := range h.rooms[out.listingID] {
				select {
				case client.send <- out.payload:
				default:
					delete(h.rooms[out.listingID], client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastToListing sends a chat message to every subscriber of a listing.
func (h *Hub) BroadcastToListing(listingID string, message domain.ChatMessage) {
	payload, err := json.Marshal(messageEnvelope{Type: "message", Message: message})
	if err != nil {
		log.Printf("marshal broadcast message: %v", err)
		return
	}

	select {
	case h.broadcast <- outbound{listingID: listingID, payload: payload}:
	case <-time.After(time.Second):
		log.Printf("broadcast to listing %s timed out", listingID)
	}
}
