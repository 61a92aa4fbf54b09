package payment

import (
	"context"
	"errors"
	"log"
)

var ErrNotAwaitingCapture = errors.New("authorization is not awaiting capture")

// Orchestrator wraps the gateway port with the two-phase payment rules:
// authorize before persistence, capture only while awaiting capture, and
// best-effort compensation that never shadows the original failure.
type Orchestrator struct {
	gateway Gateway
}

func NewOrchestrator(gateway Gateway) *Orchestrator {
	return &Orchestrator{gateway: gateway}
}

// Authorize creates a manual-capture authorization. It runs before the
// booking row exists: the gateway is the slower, scarcer resource and its
// failure must abort before the store is touched.
func (o *Orchestrator) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Authorization, error) {
	return o.gateway.Authorize(ctx, AuthorizeRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    metadata,
	})
}

// CompensateCancelAuthorization voids an authorization created in a use case
// that failed before persistence. Errors are logged and swallowed; the
// caller's original failure is what surfaces.
func (o *Orchestrator) CompensateCancelAuthorization(ctx context.Context, ref string) {
	if err := o.gateway.Cancel(ctx, ref); err != nil && !errors.Is(err, ErrAlreadyFinalized) {
		log.Printf("compensating cancel of authorization %s failed: %v", ref, err)
	}
}

// RequiresCapture reports whether the authorization is still awaiting
// capture on the gateway.
func (o *Orchestrator) RequiresCapture(ctx context.Context, ref string) (bool, error) {
	status, err := o.gateway.Retrieve(ctx, ref)
	if err != nil {
		return false, err
	}
	return status == AuthorizationStatusRequiresCapture, nil
}

// Capture settles an authorization. The caller guards with the aggregate's
// PENDING precondition so a double-confirm never reaches the gateway twice.
func (o *Orchestrator) Capture(ctx context.Context, ref string) error {
	return o.gateway.Capture(ctx, ref)
}

// CancelAuthorization voids an uncaptured authorization on reject/cancel.
// An already settled or voided authorization is a no-op.
func (o *Orchestrator) CancelAuthorization(ctx context.Context, ref string) error {
	err := o.gateway.Cancel(ctx, ref)
	if errors.Is(err, ErrAlreadyFinalized) {
		return nil
	}
	return err
}

func (o *Orchestrator) Refund(ctx context.Context, ref string, amountCents int64) error {
	return o.gateway.Refund(ctx, ref, amountCents)
}

func (o *Orchestrator) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return o.gateway.ParseWebhook(payload, signature)
}
