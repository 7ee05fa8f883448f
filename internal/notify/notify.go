// Package notify turns match events into user-facing notifications. The
// delivery channel is a log line for now; the worker owns the wiring.
package notify

import (
	"context"
	"fmt"

	"github.com/avelkov/carrylink/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.MatchEvent) error {
	recipient := event.OwnerID
	if event.Type == "request_accepted" || event.Type == "request_rejected" {
		recipient = event.RequesterID
	}
	fmt.Printf("notify %s: %s for trip %s (request %s, status %s)\n",
		recipient, event.Type, event.TripID, event.RequestID, event.Status)
	return nil
}
