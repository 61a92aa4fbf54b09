package payment

import (
	"context"
	"errors"
)

type AuthorizationStatus string

const (
	AuthorizationStatusRequiresCapture AuthorizationStatus = "requires_capture"
	AuthorizationStatusSucceeded       AuthorizationStatus = "succeeded"
	AuthorizationStatusCanceled        AuthorizationStatus = "canceled"
)

var (
	// ErrAlreadyFinalized means the authorization was already captured or
	// voided on the gateway side.
	ErrAlreadyFinalized = errors.New("authorization already settled or voided")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Authorization is a reserved-but-not-captured charge. ClientSecret is the
// handle the client finishes the payment with.
type Authorization struct {
	ID           string
	ClientSecret string
}

type AuthorizeRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type WebhookEventType string

const (
	WebhookPaymentSucceeded WebhookEventType = "payment_succeeded"
	WebhookPaymentFailed    WebhookEventType = "payment_failed"
	WebhookPaymentCanceled  WebhookEventType = "payment_canceled"
)

type WebhookEvent struct {
	Type            WebhookEventType
	AuthorizationID string
	BookingID       string
	AmountCents     int64
	Currency        string
}

// Gateway is the payment provider port. Authorizations are created with
// manual capture; settling happens on host confirmation.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	Capture(ctx context.Context, ref string) error
	Cancel(ctx context.Context, ref string) error
	Retrieve(ctx context.Context, ref string) (AuthorizationStatus, error)
	Refund(ctx context.Context, ref string, amountCents int64) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
