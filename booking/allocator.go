package booking

import (
	"math"
	"sort"
	"sync"
	"time"

	"parkwise/models"
	"parkwise/utils"
)

// Config carries the deployment-tunable policy constants so they are
// testable and overridable instead of buried as literals.
type Config struct {
	ProximityKm         float64 // max distance for "park now" bookings
	AbundantFreeSlots   int     // free-slot count above which the long hold applies
	AbundantCancelAfter time.Duration
	ArrivalWindow       time.Duration // captured onto each new booking
	GracePeriod         time.Duration
	WalkInHourlyRate    float64 // fallback rate for walk-in settlement
}

func DefaultConfig() Config {
	return Config{
		ProximityKm:         3,
		AbundantFreeSlots:   5,
		AbundantCancelAfter: 50 * time.Minute,
		ArrivalWindow:       20 * time.Minute,
		GracePeriod:         3 * time.Minute,
		WalkInHourlyRate:    40,
	}
}

// Allocator picks a free slot for a reservation window. All reads and
// the final pick happen under a per-facility lock so two concurrent
// requests cannot claim the same slot for overlapping windows.
type Allocator struct {
	cfg   Config
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAllocator(cfg Config) *Allocator {
	return &Allocator{
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *Allocator) Config() Config { return a.cfg }

// FacilityLock returns the mutex serializing allocation for one facility.
func (a *Allocator) FacilityLock(facilityID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[facilityID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[facilityID] = lock
	}
	return lock
}

// Request is a validated allocation request.
type Request struct {
	FacilityID  string
	VehicleType string
	StartTime   time.Time
	EndTime     time.Time
	IsPreBooked bool
	UserLat     *float64
	UserLng     *float64
}

// Validate checks time ordering and required fields.
func (r Request) Validate() error {
	if r.FacilityID == "" {
		return ValidationError{Msg: "facility is required"}
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return ValidationError{Msg: "startTime and endTime are required"}
	}
	if !r.StartTime.Before(r.EndTime) {
		return ValidationError{Msg: "end time must be after start time"}
	}
	return nil
}

// CheckProximity enforces the park-now distance gate. Pre-bookings skip
// it, as do requests that carry no location.
func (a *Allocator) CheckProximity(r Request, facility models.Facility) error {
	if r.IsPreBooked || r.UserLat == nil || r.UserLng == nil {
		return nil
	}
	d := HaversineKm(*r.UserLat, *r.UserLng, facility.Location.Latitude, facility.Location.Longitude)
	if d > a.cfg.ProximityKm {
		return ErrOutOfRange
	}
	return nil
}

// Overlaps reports whether a booking's [start, end) window intersects
// the requested one. Half-open: back-to-back bookings do not conflict.
func Overlaps(b models.Booking, start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// blocksSlot is true for ledger states that hold a claim on the slot.
func blocksSlot(s models.BookingStatus) bool {
	return s == models.BookingReserved || s == models.BookingActive
}

// PickSlot removes slots with a conflicting claim from the candidate
// set and deterministically returns the first survivor by ascending
// slot number (slot ID as tie-break). Candidates must already be
// filtered to the requested vehicle type.
func PickSlot(candidates []models.Slot, existing []models.Booking, start, end time.Time) (models.Slot, error) {
	if len(candidates) == 0 {
		return models.Slot{}, ErrNoCapacity
	}

	busy := make(map[string]bool)
	for _, b := range existing {
		if blocksSlot(b.Status) && Overlaps(b, start, end) {
			busy[b.SlotID] = true
		}
	}

	free := make([]models.Slot, 0, len(candidates))
	for _, s := range candidates {
		if !busy[s.SlotID] {
			free = append(free, s)
		}
	}
	if len(free) == 0 {
		return models.Slot{}, ErrFullyBooked
	}

	sort.Slice(free, func(i, j int) bool {
		if free[i].SlotNumber != free[j].SlotNumber {
			return free[i].SlotNumber < free[j].SlotNumber
		}
		return free[i].SlotID < free[j].SlotID
	})
	return free[0], nil
}

// NewBooking builds the reservation record for a picked slot, pricing
// included. Pre-bookings are charged their fee up front.
func (a *Allocator) NewBooking(r Request, facility models.Facility, slot models.Slot, userID string, now time.Time) models.Booking {
	quote := Price(facility.Pricing, r.StartTime, r.EndTime, r.IsPreBooked)

	payment := models.PaymentPending
	if r.IsPreBooked {
		payment = models.PaymentPaid
	}

	return models.Booking{
		BookingID:     utils.GetUUID(),
		UserID:        userID,
		FacilityID:    facility.FacilityID,
		SlotID:        slot.SlotID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        models.BookingReserved,
		TotalAmount:   quote.TotalAmount,
		IsPreBooked:   r.IsPreBooked,
		PaymentStatus: payment,
		PreBookingFee: quote.PreBookingFee,
		ArrivalWindow: int(a.cfg.ArrivalWindow.Minutes()),
		GracePeriod:   int(a.cfg.GracePeriod.Minutes()),
		TicketID:      utils.GenerateTicketCode(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// FreeSlotCount counts slots with no live claim overlapping the instant.
// Occupancy is derived from the ledger, never a stored boolean.
func FreeSlotCount(slots []models.Slot, bookings []models.Booking, now time.Time) int {
	held := make(map[string]bool)
	for _, b := range bookings {
		if blocksSlot(b.Status) && !b.StartTime.After(now) && b.EndTime.After(now) {
			held[b.SlotID] = true
		}
	}
	free := 0
	for _, s := range slots {
		if !held[s.SlotID] {
			free++
		}
	}
	return free
}
