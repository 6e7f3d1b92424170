package booking

import (
	"math"
	"time"

	"parkwise/models"
)

// CanCancel decides whether a booking may be cancelled at `now`.
// freeSlots is the facility's current free-slot count (derived from the
// ledger, see FreeSlotCount).
//
// Walk-in reservations cancel freely. Pre-bookings are held for a
// window that depends on facility pressure: plenty of free slots means
// the booker keeps a long hold (AbundantCancelAfter); scarce capacity
// means the slot must return to the pool right after the captured
// arrival window plus grace period.
func (a *Allocator) CanCancel(b models.Booking, requesterID string, freeSlots int, now time.Time) error {
	if b.UserID != requesterID {
		return ErrAccessDenied
	}
	if b.Status != models.BookingReserved {
		return InvalidStateError{From: string(b.Status), To: string(models.BookingCancelled)}
	}
	if !b.IsPreBooked {
		return nil
	}

	elapsed := now.Sub(b.CreatedAt)

	var hold time.Duration
	if freeSlots > a.cfg.AbundantFreeSlots {
		hold = a.cfg.AbundantCancelAfter
	} else {
		hold = time.Duration(b.ArrivalWindow+b.GracePeriod) * time.Minute
	}

	if elapsed < hold {
		wait := int(math.Ceil((hold - elapsed).Minutes()))
		return CancellationDenied{WaitMinutes: wait}
	}
	return nil
}

// Transition validates a state-machine move. Terminal states never change.
func Transition(b *models.Booking, to models.BookingStatus, now time.Time) error {
	from := b.Status
	ok := false
	switch from {
	case models.BookingReserved:
		ok = to == models.BookingActive || to == models.BookingCancelled
	case models.BookingActive:
		ok = to == models.BookingCompleted
	}
	if !ok {
		return InvalidStateError{From: string(from), To: string(to)}
	}
	b.Status = to
	b.UpdatedAt = now
	return nil
}
