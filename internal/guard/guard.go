package guard

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/apperr"
)

// Cache is the slice of the shared cache/lock service the guards rely on.
// Slot locks have no release: they expire by TTL whether or not the request
// that took them succeeds.
type Cache interface {
	AcquireSlotLock(ctx context.Context, propertyID, checkIn, checkOut string, ttl time.Duration) (bool, error)
	SetHold(ctx context.Context, bookingID, guestID string, ttl time.Duration) error
	DeleteHold(ctx context.Context, bookingID string) error
	ActiveHolds(ctx context.Context, bookingIDs []string) (map[string]bool, error)
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// ConcurrencyGuard composes the three independent guards in front of
// CreateBooking: the per-guest rate limiter, the exact-range slot lock and
// the hold marker. None of them is authoritative; the serializable
// transaction at persistence time is the correctness backstop.
type ConcurrencyGuard struct {
	cache        Cache
	rateLimitMax int64
	rateWindow   time.Duration
	slotLockTTL  time.Duration
	holdTTL      time.Duration
}

func NewConcurrencyGuard(cache Cache, rateLimitMax int, rateWindow, slotLockTTL, holdTTL time.Duration) *ConcurrencyGuard {
	return &ConcurrencyGuard{
		cache:        cache,
		rateLimitMax: int64(rateLimitMax),
		rateWindow:   rateWindow,
		slotLockTTL:  slotLockTTL,
		holdTTL:      holdTTL,
	}
}

// CheckRateLimit counts this request against the guest's rolling window and
// rejects once the maximum is exceeded. Rejected requests still consume the
// slot they incremented.
func (g *ConcurrencyGuard) CheckRateLimit(ctx context.Context, guestID string) error {
	count, err := g.cache.IncrWindow(ctx, guestID, g.rateWindow)
	if err != nil {
		return apperr.ServiceUnavailable("rate limiter unavailable", err)
	}
	if count > g.rateLimitMax {
		return apperr.BadRequest("too many booking requests, try again later")
	}
	return nil
}

// LockSlot guards against two requests for the identical date strings. It
// does not catch overlapping-but-different ranges; those fall through to the
// transactional conflict check.
func (g *ConcurrencyGuard) LockSlot(ctx context.Context, propertyID, checkIn, checkOut string) error {
	ok, err := g.cache.AcquireSlotLock(ctx, propertyID, checkIn, checkOut, g.slotLockTTL)
	if err != nil {
		return apperr.ServiceUnavailable("slot lock unavailable", err)
	}
	if !ok {
		return apperr.BadRequest("dates are temporarily reserved, try again")
	}
	return nil
}

// PlaceHold marks a persisted PENDING booking as having an in-flight payment
// attempt. The TTL matches the payment authorization window, so an abandoned
// checkout stops blocking the dates on its own.
func (g *ConcurrencyGuard) PlaceHold(ctx context.Context, bookingID, guestID string) error {
	return g.cache.SetHold(ctx, bookingID, guestID, g.holdTTL)
}

func (g *ConcurrencyGuard) ReleaseHold(ctx context.Context, bookingID string) error {
	return g.cache.DeleteHold(ctx, bookingID)
}

func (g *ConcurrencyGuard) ActiveHolds(ctx context.Context, bookingIDs []string) (map[string]bool, error) {
	return g.cache.ActiveHolds(ctx, bookingIDs)
}
