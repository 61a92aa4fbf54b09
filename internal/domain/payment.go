package domain

import (
	"errors"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

var (
	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrPaymentNotCompleted = errors.New("payment is not completed")
)

// Payment is one-to-one with a Booking. Fee fields are nil until the
// PENDING->COMPLETED transition sets both atomically, exactly once.
type Payment struct {
	ID               string
	BookingID        string
	AmountCents      int64
	Currency         string
	ExternalRef      string
	Status           PaymentStatus
	PlatformFeeCents *int64
	HostNetCents     *int64
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewPayment(id, bookingID string, amountCents int64, currency, externalRef string, now time.Time) *Payment {
	return &Payment{
		ID:          id,
		BookingID:   bookingID,
		AmountCents: amountCents,
		Currency:    currency,
		ExternalRef: externalRef,
		Status:      PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FeeComputed reports whether the commission split was already applied.
// Used as the idempotency guard against out-of-order webhook deliveries.
func (p *Payment) FeeComputed() bool {
	return p.PlatformFeeCents != nil && p.HostNetCents != nil
}

// Complete transitions PENDING->COMPLETED and applies the commission split.
// The split is never recomputed once set.
func (p *Payment) Complete(split Commission, now time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrPaymentNotPending
	}
	if !p.FeeComputed() {
		fee, net := split.PlatformFeeCents, split.HostNetCents
		p.PlatformFeeCents = &fee
		p.HostNetCents = &net
	}
	p.Status = PaymentStatusCompleted
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Cancel(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrPaymentNotPending
	}
	p.Status = PaymentStatusCancelled
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Fail(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrPaymentNotPending
	}
	p.Status = PaymentStatusFailed
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkRefunded(now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return ErrPaymentNotCompleted
	}
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = now
	return nil
}
