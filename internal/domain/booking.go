package domain

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusRefunded  BookingStatus = "REFUNDED"
)

// Expected business-rule violations are sentinel errors, never panics.
var (
	ErrCheckInInPast             = errors.New("check-in date is in the past")
	ErrCheckOutBeforeCheckIn     = errors.New("check-out must be after check-in")
	ErrTooManyGuests             = errors.New("guests exceed property capacity")
	ErrOnlyPendingCanBeConfirmed = errors.New("only a pending booking can be confirmed")
	ErrOnlyPendingCanBeRejected  = errors.New("only a pending booking can be rejected")
	ErrAlreadyCancelled          = errors.New("booking is already cancelled")
	ErrNotCancellable            = errors.New("booking can no longer be cancelled")
	ErrNotRefundable             = errors.New("only a confirmed or completed booking can be refunded")
)

type Booking struct {
	ID              string
	PropertyID      string
	GuestID         string
	HostID          string
	OrganizationID  string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	Nights          int
	TotalPriceCents int64
	Status          BookingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time

	events []Event
}

type CreateBookingParams struct {
	ID                 string
	PropertyID         string
	GuestID            string
	HostID             string
	OrganizationID     string
	CheckIn            time.Time
	CheckOut           time.Time
	Guests             int
	PricePerNightCents int64
	MaxGuests          int
}

// NewBooking validates the request and returns a PENDING booking with a
// booking_created event recorded. Dates are compared at day granularity.
func NewBooking(params CreateBookingParams, now time.Time) (*Booking, error) {
	today := truncateToDay(now)
	if params.CheckIn.Before(today) {
		return nil, ErrCheckInInPast
	}
	if !params.CheckOut.After(params.CheckIn) {
		return nil, ErrCheckOutBeforeCheckIn
	}
	if params.Guests > params.MaxGuests {
		return nil, ErrTooManyGuests
	}

	nights := nightsBetween(params.CheckIn, params.CheckOut)
	b := &Booking{
		ID:              params.ID,
		PropertyID:      params.PropertyID,
		GuestID:         params.GuestID,
		HostID:          params.HostID,
		OrganizationID:  params.OrganizationID,
		CheckIn:         params.CheckIn,
		CheckOut:        params.CheckOut,
		Guests:          params.Guests,
		Nights:          nights,
		TotalPriceCents: params.PricePerNightCents * int64(nights),
		Status:          BookingStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.record(EventBookingCreated, now)
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingStatusPending {
		return ErrOnlyPendingCanBeConfirmed
	}
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = now
	b.record(EventBookingConfirmed, now)
	return nil
}

func (b *Booking) Reject(now time.Time) error {
	if b.Status != BookingStatusPending {
		return ErrOnlyPendingCanBeRejected
	}
	b.Status = BookingStatusRejected
	b.UpdatedAt = now
	b.record(EventBookingRejected, now)
	return nil
}

func (b *Booking) Cancel(now time.Time) error {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed:
	case BookingStatusCancelled:
		return ErrAlreadyCancelled
	default:
		return ErrNotCancellable
	}
	b.Status = BookingStatusCancelled
	b.UpdatedAt = now
	b.record(EventBookingCancelled, now)
	return nil
}

func (b *Booking) Refund(now time.Time) error {
	if b.Status != BookingStatusConfirmed && b.Status != BookingStatusCompleted {
		return ErrNotRefundable
	}
	b.Status = BookingStatusRefunded
	b.UpdatedAt = now
	b.record(EventBookingRefunded, now)
	return nil
}

// PullEvents drains the pending event buffer. The caller owns the returned
// slice; a second call returns nothing until new transitions happen.
func (b *Booking) PullEvents() []Event {
	out := b.events
	b.events = nil
	return out
}

func (b *Booking) record(eventType string, at time.Time) {
	b.events = append(b.events, Event{
		AggregateID: b.ID,
		Type:        eventType,
		OccurredAt:  at,
		Payload: EventPayload{
			PropertyID: b.PropertyID,
			GuestID:    b.GuestID,
			HostID:     b.HostID,
			CheckIn:    b.CheckIn,
			CheckOut:   b.CheckOut,
			Status:     string(b.Status),
			TotalCents: b.TotalPriceCents,
		},
	})
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nightsBetween(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}
