package booking

import (
	"errors"
	"testing"
	"time"

	"parkwise/models"
)

func preBooking(createdAt time.Time) models.Booking {
	return models.Booking{
		BookingID:     "b1",
		UserID:        "u1",
		FacilityID:    "p1",
		SlotID:        "s1",
		Status:        models.BookingReserved,
		IsPreBooked:   true,
		ArrivalWindow: 20,
		GracePeriod:   3,
		CreatedAt:     createdAt,
	}
}

func TestCanCancelWrongUser(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	b := preBooking(at(10, 0))
	if err := a.CanCancel(b, "someone-else", 10, at(12, 0)); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestCanCancelNonReservedStates(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	for _, status := range []models.BookingStatus{models.BookingActive, models.BookingCompleted, models.BookingCancelled} {
		b := preBooking(at(10, 0))
		b.Status = status
		err := a.CanCancel(b, "u1", 10, at(12, 0))
		var ise InvalidStateError
		if !errors.As(err, &ise) {
			t.Fatalf("status %s: expected InvalidStateError, got %v", status, err)
		}
	}
}

func TestCanCancelWalkInAlways(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	b := preBooking(at(10, 0))
	b.IsPreBooked = false
	if err := a.CanCancel(b, "u1", 0, at(10, 0)); err != nil {
		t.Fatalf("walk-in cancellation must be unconditional, got %v", err)
	}
}

func TestCanCancelAbundantCapacityBoundary(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	created := at(10, 0)
	b := preBooking(created)

	// More than 5 free slots: 50 minute hold.
	err := a.CanCancel(b, "u1", 6, created.Add(49*time.Minute))
	var denied CancellationDenied
	if !errors.As(err, &denied) {
		t.Fatalf("at 49min expected denial, got %v", err)
	}
	if denied.WaitMinutes != 1 {
		t.Errorf("expected 1 minute remaining, got %d", denied.WaitMinutes)
	}

	if err := a.CanCancel(b, "u1", 6, created.Add(50*time.Minute)); err != nil {
		t.Fatalf("at 50min cancellation must open, got %v", err)
	}
}

func TestCanCancelScarceCapacityBoundary(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	created := at(10, 0)
	b := preBooking(created) // arrivalWindow 20 + grace 3 = 23 min

	if err := a.CanCancel(b, "u1", 5, created.Add(22*time.Minute)); err == nil {
		t.Fatal("at 22min with scarce capacity cancellation must be denied")
	}
	if err := a.CanCancel(b, "u1", 5, created.Add(23*time.Minute)); err != nil {
		t.Fatalf("at 23min cancellation must open, got %v", err)
	}
}

func TestCanCancelUsesCapturedPolicyConstants(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	created := at(10, 0)
	b := preBooking(created)
	b.ArrivalWindow = 30 // captured at creation, not the current default
	b.GracePeriod = 10

	if err := a.CanCancel(b, "u1", 2, created.Add(39*time.Minute)); err == nil {
		t.Fatal("captured 40min grace must still hold at 39min")
	}
	if err := a.CanCancel(b, "u1", 2, created.Add(40*time.Minute)); err != nil {
		t.Fatalf("captured grace elapsed, got %v", err)
	}
}

func TestTransitionStateMachine(t *testing.T) {
	now := at(12, 0)

	b := preBooking(at(10, 0))
	if err := Transition(&b, models.BookingActive, now); err != nil {
		t.Fatalf("reserved -> active must succeed: %v", err)
	}
	if err := Transition(&b, models.BookingCompleted, now); err != nil {
		t.Fatalf("active -> completed must succeed: %v", err)
	}

	// Terminal: nothing moves out of completed.
	if err := Transition(&b, models.BookingActive, now); err == nil {
		t.Fatal("completed is terminal")
	}
	if b.Status != models.BookingCompleted {
		t.Fatalf("failed transition must not change state, now %s", b.Status)
	}

	c := preBooking(at(10, 0))
	if err := Transition(&c, models.BookingCancelled, now); err != nil {
		t.Fatalf("reserved -> cancelled must succeed: %v", err)
	}
	if err := Transition(&c, models.BookingActive, now); err == nil {
		t.Fatal("cancelled is terminal")
	}

	d := preBooking(at(10, 0))
	if err := Transition(&d, models.BookingCompleted, now); err == nil {
		t.Fatal("reserved -> completed must be rejected")
	}
	e := preBooking(at(10, 0))
	e.Status = models.BookingActive
	if err := Transition(&e, models.BookingCancelled, now); err == nil {
		t.Fatal("active -> cancelled must be rejected")
	}

	// Re-activating an active booking must fail; the gate relies on
	// this to refuse a second check-in of the same ticket.
	f := preBooking(at(10, 0))
	f.Status = models.BookingActive
	err := Transition(&f, models.BookingActive, now)
	var ise InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("active -> active must return InvalidStateError, got %v", err)
	}
	if f.Status != models.BookingActive {
		t.Fatalf("failed transition must not change state, now %s", f.Status)
	}
}
