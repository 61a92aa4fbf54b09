package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var paymentNow = time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)

func TestPayment_Complete(t *testing.T) {
	p := NewPayment("pay-1", "bk-1", 20000, "usd", "pi_123", paymentNow)
	assert.False(t, p.FeeComputed())

	err := p.Complete(Commission{PlatformFeeCents: 2000, HostNetCents: 18000}, paymentNow)
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, p.Status)
	assert.True(t, p.FeeComputed())
	assert.Equal(t, int64(2000), *p.PlatformFeeCents)
	assert.Equal(t, int64(18000), *p.HostNetCents)
	assert.NotNil(t, p.PaidAt)

	err = p.Complete(Commission{PlatformFeeCents: 9999, HostNetCents: 1}, paymentNow)
	assert.ErrorIs(t, err, ErrPaymentNotPending)
	assert.Equal(t, int64(2000), *p.PlatformFeeCents, "fee is never recomputed")
}

func TestPayment_CancelAndFail(t *testing.T) {
	p := NewPayment("pay-1", "bk-1", 20000, "usd", "pi_123", paymentNow)
	assert.NoError(t, p.Cancel(paymentNow))
	assert.Equal(t, PaymentStatusCancelled, p.Status)
	assert.ErrorIs(t, p.Fail(paymentNow), ErrPaymentNotPending)

	p2 := NewPayment("pay-2", "bk-2", 20000, "usd", "pi_456", paymentNow)
	assert.NoError(t, p2.Fail(paymentNow))
	assert.Equal(t, PaymentStatusFailed, p2.Status)
}

func TestPayment_MarkRefunded(t *testing.T) {
	p := NewPayment("pay-1", "bk-1", 20000, "usd", "pi_123", paymentNow)
	assert.ErrorIs(t, p.MarkRefunded(paymentNow), ErrPaymentNotCompleted)

	assert.NoError(t, p.Complete(Commission{PlatformFeeCents: 2000, HostNetCents: 18000}, paymentNow))
	assert.NoError(t, p.MarkRefunded(paymentNow))
	assert.Equal(t, PaymentStatusRefunded, p.Status)
}
