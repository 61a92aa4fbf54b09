package email

import (
	"context"
	"log"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// Sender delivers booking notifications. The transport is a stub that logs
// instead of talking to a mail provider; the worker treats it as fire and
// forget.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventBookingCreated:
		log.Printf("notify host %s: new booking request %s for property %s", event.Payload.HostID, event.AggregateID, event.Payload.PropertyID)
	case domain.EventBookingConfirmed, domain.EventBookingRejected, domain.EventBookingCancelled, domain.EventBookingRefunded:
		log.Printf("notify guest %s: booking %s is now %s", event.Payload.GuestID, event.AggregateID, event.Payload.Status)
	default:
		log.Printf("skip notification for unknown event type %q", event.Type)
	}
	return nil
}
