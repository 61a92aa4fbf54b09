package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Authorization), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockGateway) Cancel(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockGateway) Retrieve(ctx context.Context, ref string) (AuthorizationStatus, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(AuthorizationStatus), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, ref string, amountCents int64) error {
	args := m.Called(ctx, ref, amountCents)
	return args.Error(0)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WebhookEvent), args.Error(1)
}

func TestOrchestrator_Authorize(t *testing.T) {
	mockGateway := &MockGateway{}
	o := NewOrchestrator(mockGateway)

	ctx := context.Background()
	expected := AuthorizeRequest{
		AmountCents: 20000,
		Currency:    "usd",
		Metadata:    map[string]string{"booking_id": "bk-1"},
	}
	mockGateway.On("Authorize", ctx, expected).Return(&Authorization{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil).Once()

	auth, err := o.Authorize(ctx, 20000, "usd", map[string]string{"booking_id": "bk-1"})
	assert.NoError(t, err)
	assert.Equal(t, "pi_123", auth.ID)
	mockGateway.AssertExpectations(t)
}

func TestOrchestrator_RequiresCapture(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		status   AuthorizationStatus
		expected bool
	}{
		{AuthorizationStatusRequiresCapture, true},
		{AuthorizationStatusSucceeded, false},
		{AuthorizationStatusCanceled, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			mockGateway := &MockGateway{}
			mockGateway.On("Retrieve", ctx, "pi_123").Return(tc.status, nil).Once()

			o := NewOrchestrator(mockGateway)
			awaiting, err := o.RequiresCapture(ctx, "pi_123")
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, awaiting)
		})
	}
}

func TestOrchestrator_CancelAuthorization_AlreadyFinalized(t *testing.T) {
	mockGateway := &MockGateway{}
	o := NewOrchestrator(mockGateway)

	ctx := context.Background()
	mockGateway.On("Cancel", ctx, "pi_123").Return(ErrAlreadyFinalized).Once()

	assert.NoError(t, o.CancelAuthorization(ctx, "pi_123"))
	mockGateway.AssertExpectations(t)
}

func TestOrchestrator_CancelAuthorization_PropagatesOtherErrors(t *testing.T) {
	mockGateway := &MockGateway{}
	o := NewOrchestrator(mockGateway)

	ctx := context.Background()
	gatewayErr := errors.New("gateway timeout")
	mockGateway.On("Cancel", ctx, "pi_123").Return(gatewayErr).Once()

	assert.ErrorIs(t, o.CancelAuthorization(ctx, "pi_123"), gatewayErr)
}

func TestOrchestrator_CompensateCancelAuthorization_Swallows(t *testing.T) {
	mockGateway := &MockGateway{}
	o := NewOrchestrator(mockGateway)

	ctx := context.Background()
	mockGateway.On("Cancel", ctx, "pi_123").Return(errors.New("gateway timeout")).Once()

	// Must not panic or surface the error; the caller's failure wins.
	o.CompensateCancelAuthorization(ctx, "pi_123")
	mockGateway.AssertExpectations(t)
}
