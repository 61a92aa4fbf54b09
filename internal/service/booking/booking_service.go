package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/staybooking/internal/apperr"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	ConfirmBooking(ctx context.Context, input ActorInput) (*domain.Booking, error)
	RejectBooking(ctx context.Context, input ActorInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, input ActorInput) (*domain.Booking, error)
	RefundBooking(ctx context.Context, input ActorInput) (*domain.Booking, error)
	ReconcilePaymentWebhook(ctx context.Context, payload []byte, signature string) error
}

// Guard is the slice of the concurrency guard the use cases consume. The
// slot lock has no release here: it expires by TTL whether or not the
// request succeeds.
type Guard interface {
	CheckRateLimit(ctx context.Context, guestID string) error
	LockSlot(ctx context.Context, propertyID, checkIn, checkOut string) error
	PlaceHold(ctx context.Context, bookingID, guestID string) error
	ReleaseHold(ctx context.Context, bookingID string) error
	ActiveHolds(ctx context.Context, bookingIDs []string) (map[string]bool, error)
}

// Payments is the orchestrator surface the use cases consume.
type Payments interface {
	Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Authorization, error)
	CompensateCancelAuthorization(ctx context.Context, ref string)
	RequiresCapture(ctx context.Context, ref string) (bool, error)
	Capture(ctx context.Context, ref string) error
	CancelAuthorization(ctx context.Context, ref string) error
	Refund(ctx context.Context, ref string, amountCents int64) error
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

type BookingService struct {
	repo     repository.BookingRepository
	guard    Guard
	payments Payments
	currency string
	feeBps   int64
	now      func() time.Time
}

type BookingServiceOption func(*BookingService)

// WithClock overrides the time source, used by validation tests.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	repo repository.BookingRepository,
	guard Guard,
	payments Payments,
	currency string,
	feeBps int64,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		repo:     repo,
		guard:    guard,
		payments: payments,
		currency: currency,
		feeBps:   feeBps,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CreateBookingInput struct {
	PropertyID     string `json:"property_id"`
	GuestID        string `json:"guest_id"`
	OrganizationID string `json:"organization_id"`
	CheckIn        string `json:"check_in"`
	CheckOut       string `json:"check_out"`
	Guests         int    `json:"guests"`
}

type CreateBookingResult struct {
	Booking      *domain.Booking
	Payment      *domain.Payment
	ClientSecret string
}

type ActorInput struct {
	BookingID      string
	ActorID        string
	OrganizationID string
}

// CreateBooking runs the full request pipeline: guards, domain validation,
// payment authorization, hold-aware conflict check, atomic persistence, hold
// placement. Any failure after the authorization compensates it; the slot
// lock and the rate-limit counter are deliberately not rolled back.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	checkIn, err := time.ParseInLocation(time.DateOnly, input.CheckIn, time.UTC)
	if err != nil {
		return nil, apperr.BadRequest("invalid check-in date")
	}
	checkOut, err := time.ParseInLocation(time.DateOnly, input.CheckOut, time.UTC)
	if err != nil {
		return nil, apperr.BadRequest("invalid check-out date")
	}

	if err := s.guard.CheckRateLimit(ctx, input.GuestID); err != nil {
		return nil, err
	}
	if err := s.guard.LockSlot(ctx, input.PropertyID, input.CheckIn, input.CheckOut); err != nil {
		return nil, err
	}

	property, err := s.repo.GetProperty(ctx, input.PropertyID, input.OrganizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("property not found")
		}
		return nil, apperr.ServiceUnavailable("load property", err)
	}
	if !property.Published {
		return nil, apperr.NotFound("property not found")
	}

	now := s.now()
	booking, err := domain.NewBooking(domain.CreateBookingParams{
		ID:                 uuid.NewString(),
		PropertyID:         property.ID,
		GuestID:            input.GuestID,
		HostID:             property.HostID,
		OrganizationID:     input.OrganizationID,
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		Guests:             input.Guests,
		PricePerNightCents: property.PricePerNightCents,
		MaxGuests:          property.MaxGuests,
	}, now)
	if err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	auth, err := s.payments.Authorize(ctx, booking.TotalPriceCents, s.currency, map[string]string{
		"booking_id":  booking.ID,
		"property_id": booking.PropertyID,
		"guest_id":    booking.GuestID,
	})
	if err != nil {
		return nil, apperr.ServiceUnavailable("authorize payment", err)
	}

	// Defense in depth: the slot lock only catches identical ranges, so
	// re-check real overlaps before persisting.
	conflict, err := s.hasActiveConflict(ctx, property.ID, checkIn, checkOut)
	if err != nil {
		s.payments.CompensateCancelAuthorization(ctx, auth.ID)
		return nil, apperr.ServiceUnavailable("check availability", err)
	}
	if conflict {
		s.payments.CompensateCancelAuthorization(ctx, auth.ID)
		return nil, apperr.BadRequest("not available for selected dates")
	}

	pay := domain.NewPayment(uuid.NewString(), booking.ID, booking.TotalPriceCents, s.currency, auth.ID, now)
	if err := s.repo.CreateWithPayment(ctx, booking, pay, booking.PullEvents()); err != nil {
		s.payments.CompensateCancelAuthorization(ctx, auth.ID)
		if errors.Is(err, repository.ErrDateConflict) {
			return nil, apperr.BadRequest("not available for selected dates")
		}
		return nil, apperr.ServiceUnavailable("persist booking", err)
	}

	if err := s.guard.PlaceHold(ctx, booking.ID, booking.GuestID); err != nil {
		// The booking is persisted; a missing hold only means the slot
		// stops blocking other guests early.
		log.Printf("place hold for booking %s: %v", booking.ID, err)
	}

	return &CreateBookingResult{Booking: booking, Payment: pay, ClientSecret: auth.ClientSecret}, nil
}

// ConfirmBooking captures the authorization and finalizes the commission
// split. Both the aggregate precondition and the gateway state are checked
// before any external call, so a double confirm never reaches the gateway.
func (s *BookingService) ConfirmBooking(ctx context.Context, input ActorInput) (*domain.Booking, error) {
	booking, pay, err := s.loadBookingWithPayment(ctx, input.BookingID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != input.ActorID {
		return nil, apperr.Forbidden("only the host can confirm a booking")
	}

	now := s.now()
	if err := booking.Confirm(now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	// A sibling request whose hold had lapsed may have been confirmed for
	// an overlapping range in the meantime; never settle against it.
	if err := s.settledOverlapExists(ctx, booking); err != nil {
		return nil, err
	}

	awaiting, err := s.payments.RequiresCapture(ctx, pay.ExternalRef)
	if err != nil {
		return nil, apperr.ServiceUnavailable("check authorization state", err)
	}
	if !awaiting {
		return nil, apperr.BadRequestFrom(payment.ErrNotAwaitingCapture)
	}

	split, err := domain.ComputeFee(pay.AmountCents, s.feeBps)
	if err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	if err := s.payments.Capture(ctx, pay.ExternalRef); err != nil {
		return nil, apperr.ServiceUnavailable("capture payment", err)
	}

	if err := pay.Complete(split, now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}
	if err := s.repo.SaveTransition(ctx, booking, pay, booking.PullEvents()); err != nil {
		return nil, apperr.ServiceUnavailable("persist confirmation", err)
	}

	s.releaseHold(ctx, booking.ID)
	return booking, nil
}

// RejectBooking is host-only. The outstanding authorization is voided best
// effort; the terminal status is persisted either way.
func (s *BookingService) RejectBooking(ctx context.Context, input ActorInput) (*domain.Booking, error) {
	booking, pay, err := s.loadBookingWithPayment(ctx, input.BookingID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != input.ActorID {
		return nil, apperr.Forbidden("only the host can reject a booking")
	}

	now := s.now()
	if err := booking.Reject(now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	if pay.Status == domain.PaymentStatusPending {
		if err := s.payments.CancelAuthorization(ctx, pay.ExternalRef); err != nil {
			log.Printf("cancel authorization %s: %v", pay.ExternalRef, err)
		}
		_ = pay.Cancel(now)
	}

	if err := s.repo.SaveTransition(ctx, booking, pay, booking.PullEvents()); err != nil {
		return nil, apperr.ServiceUnavailable("persist rejection", err)
	}

	s.releaseHold(ctx, booking.ID)
	return booking, nil
}

// CancelBooking may be called by the guest or the host.
func (s *BookingService) CancelBooking(ctx context.Context, input ActorInput) (*domain.Booking, error) {
	booking, pay, err := s.loadBookingWithPayment(ctx, input.BookingID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != input.ActorID && booking.HostID != input.ActorID {
		return nil, apperr.Forbidden("only the guest or the host can cancel a booking")
	}

	now := s.now()
	if err := booking.Cancel(now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	if pay.Status == domain.PaymentStatusPending {
		if err := s.payments.CancelAuthorization(ctx, pay.ExternalRef); err != nil {
			log.Printf("cancel authorization %s: %v", pay.ExternalRef, err)
		}
		_ = pay.Cancel(now)
	}

	if err := s.repo.SaveTransition(ctx, booking, pay, booking.PullEvents()); err != nil {
		return nil, apperr.ServiceUnavailable("persist cancellation", err)
	}

	s.releaseHold(ctx, booking.ID)
	return booking, nil
}

// RefundBooking issues a gateway refund for a captured payment and moves
// the booking to REFUNDED. Host-only.
func (s *BookingService) RefundBooking(ctx context.Context, input ActorInput) (*domain.Booking, error) {
	booking, pay, err := s.loadBookingWithPayment(ctx, input.BookingID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != input.ActorID {
		return nil, apperr.Forbidden("only the host can refund a booking")
	}

	now := s.now()
	if err := booking.Refund(now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}
	if err := pay.MarkRefunded(now); err != nil {
		return nil, apperr.BadRequestFrom(err)
	}

	if err := s.payments.Refund(ctx, pay.ExternalRef, pay.AmountCents); err != nil {
		return nil, apperr.ServiceUnavailable("refund payment", err)
	}

	if err := s.repo.SaveTransition(ctx, booking, pay, booking.PullEvents()); err != nil {
		return nil, apperr.ServiceUnavailable("persist refund", err)
	}
	return booking, nil
}

// ReconcilePaymentWebhook is the asynchronous correction path. Webhooks can
// arrive out of order relative to the synchronous confirm call; a payment
// that is already COMPLETED is ignored and the commission split is never
// recomputed once set.
func (s *BookingService) ReconcilePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return apperr.BadRequestFrom(err)
	}

	pay, err := s.repo.GetPaymentByExternalRef(ctx, event.AuthorizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("payment not found for webhook")
		}
		return apperr.ServiceUnavailable("load payment", err)
	}
	booking, err := s.repo.GetBookingByID(ctx, pay.BookingID)
	if err != nil {
		return apperr.ServiceUnavailable("load booking", err)
	}

	now := s.now()
	switch event.Type {
	case payment.WebhookPaymentSucceeded:
		// Already completed, or a capture racing a local cancel/failure:
		// either way the event must be acknowledged, not redelivered.
		// Settled-vs-voided money discrepancies reconcile out of band.
		if pay.Status != domain.PaymentStatusPending {
			return nil
		}
		split := domain.Commission{}
		if !pay.FeeComputed() {
			split, err = domain.ComputeFee(pay.AmountCents, s.feeBps)
			if err != nil {
				return apperr.BadRequestFrom(err)
			}
		}
		if booking.Status == domain.BookingStatusPending {
			if err := booking.Confirm(now); err != nil {
				return apperr.BadRequestFrom(err)
			}
		}
		if err := pay.Complete(split, now); err != nil {
			return apperr.BadRequestFrom(err)
		}
	case payment.WebhookPaymentFailed:
		if pay.Status != domain.PaymentStatusPending {
			return nil
		}
		_ = pay.Fail(now)
		if booking.Status == domain.BookingStatusPending {
			_ = booking.Cancel(now)
		}
	case payment.WebhookPaymentCanceled:
		if pay.Status != domain.PaymentStatusPending {
			return nil
		}
		_ = pay.Cancel(now)
		if booking.Status == domain.BookingStatusPending {
			_ = booking.Cancel(now)
		}
	default:
		return nil
	}

	if err := s.repo.SaveTransition(ctx, booking, pay, booking.PullEvents()); err != nil {
		return apperr.ServiceUnavailable("persist reconciliation", err)
	}
	s.releaseHold(ctx, booking.ID)
	return nil
}

// settledOverlapExists rejects a confirmation when another CONFIRMED or
// COMPLETED booking already occupies an overlapping range. Other PENDING
// siblings do not block here: the first confirmation wins and the rest fail
// this check afterwards.
func (s *BookingService) settledOverlapExists(ctx context.Context, booking *domain.Booking) error {
	slots, err := s.repo.FindOverlapping(ctx, booking.PropertyID, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return apperr.ServiceUnavailable("check availability", err)
	}
	for _, slot := range slots {
		if slot.BookingID == booking.ID {
			continue
		}
		if slot.Status == domain.BookingStatusConfirmed || slot.Status == domain.BookingStatusCompleted {
			return apperr.BadRequest("not available for selected dates")
		}
	}
	return nil
}

func (s *BookingService) hasActiveConflict(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (bool, error) {
	slots, err := s.repo.FindOverlapping(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return false, err
	}

	pendingIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.Status == domain.BookingStatusPending {
			pendingIDs = append(pendingIDs, slot.BookingID)
		}
	}
	held, err := s.guard.ActiveHolds(ctx, pendingIDs)
	if err != nil {
		return false, err
	}
	for i := range slots {
		if slots[i].Status == domain.BookingStatusPending {
			slots[i].Held = held[slots[i].BookingID]
		}
	}

	return domain.HasConflict(checkIn, checkOut, slots), nil
}

func (s *BookingService) loadBookingWithPayment(ctx context.Context, bookingID, organizationID string) (*domain.Booking, *domain.Payment, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("booking not found")
		}
		return nil, nil, apperr.ServiceUnavailable("load booking", err)
	}
	pay, err := s.repo.GetPayment(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("payment not found")
		}
		return nil, nil, apperr.ServiceUnavailable("load payment", err)
	}
	return booking, pay, nil
}

func (s *BookingService) releaseHold(ctx context.Context, bookingID string) {
	if err := s.guard.ReleaseHold(ctx, bookingID); err != nil {
		log.Printf("release hold for booking %s: %v", bookingID, err)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
