package domain

import "time"

// Slot is an existing booking's date range as seen by the conflict check.
// Held reports whether a live hold backs a PENDING booking.
type Slot struct {
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
	Status    BookingStatus
	Held      bool
}

// Overlaps uses half-open interval semantics: a range ending exactly when
// another begins does not conflict.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

// HasConflict reports whether the requested range collides with any blocking
// slot. CANCELLED, REJECTED and REFUNDED slots never block. CONFIRMED and
// COMPLETED always block. PENDING blocks only while its hold is alive, so an
// abandoned checkout frees the dates once the hold expires.
func HasConflict(requestedStart, requestedEnd time.Time, slots []Slot) bool {
	for _, s := range slots {
		if !blocks(s) {
			continue
		}
		if Overlaps(requestedStart, requestedEnd, s.CheckIn, s.CheckOut) {
			return true
		}
	}
	return false
}

func blocks(s Slot) bool {
	switch s.Status {
	case BookingStatusCancelled, BookingStatusRejected, BookingStatusRefunded:
		return false
	case BookingStatusPending:
		return s.Held
	default:
		return true
	}
}
