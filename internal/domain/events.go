package domain

import "time"

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventBookingRefunded  = "booking_refunded"
)

type EventPayload struct {
	PropertyID string    `json:"property_id"`
	GuestID    string    `json:"guest_id"`
	HostID     string    `json:"host_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
}

// Event is drained from the aggregate and written to the outbox in the same
// transaction as the status change. Downstream consumers deduplicate by
// (AggregateID, Type, OccurredAt).
type Event struct {
	AggregateID string       `json:"aggregate_id"`
	Type        string       `json:"type"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Payload     EventPayload `json:"payload"`
}
