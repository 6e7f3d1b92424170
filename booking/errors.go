package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrOutOfRange   = errors.New("you must be within range to book \"Park Now\"; use \"Pre-book\" instead")
	ErrNoCapacity   = errors.New("no slots of this type exist in this parking")
	ErrFullyBooked  = errors.New("all slots are fully booked for this time period")
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError reports malformed input (time ordering, missing fields).
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// InvalidStateError reports an illegal booking state transition.
type InvalidStateError struct {
	From string
	To   string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

// CancellationDenied reports a cancellation attempt inside the hold window.
type CancellationDenied struct {
	WaitMinutes int
}

func (e CancellationDenied) Error() string {
	return fmt.Sprintf("cannot cancel booking yet; allowed in %d minutes", e.WaitMinutes)
}
