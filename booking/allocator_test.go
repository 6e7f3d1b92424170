package booking

import (
	"errors"
	"sync"
	"testing"
	"time"

	"parkwise/models"
)

func slot(id string, number int) models.Slot {
	return models.Slot{SlotID: id, FacilityID: "p1", SlotNumber: number, Type: "car"}
}

func reserved(slotID string, start, end time.Time) models.Booking {
	return models.Booking{
		BookingID: "b-" + slotID,
		SlotID:    slotID,
		Status:    models.BookingReserved,
		StartTime: start,
		EndTime:   end,
	}
}

func TestPickSlotDeterministic(t *testing.T) {
	candidates := []models.Slot{slot("s3", 3), slot("s1", 1), slot("s2", 2)}

	for i := 0; i < 10; i++ {
		got, err := PickSlot(candidates, nil, at(10, 0), at(12, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SlotID != "s1" {
			t.Fatalf("expected s1 every time, got %s", got.SlotID)
		}
	}
}

func TestPickSlotSkipsConflicts(t *testing.T) {
	candidates := []models.Slot{slot("s1", 1), slot("s2", 2)}
	existing := []models.Booking{reserved("s1", at(10, 0), at(12, 0))}

	got, err := PickSlot(candidates, existing, at(11, 0), at(13, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SlotID != "s2" {
		t.Fatalf("overlapping slot s1 must be skipped, got %s", got.SlotID)
	}
}

func TestPickSlotFullyBooked(t *testing.T) {
	candidates := []models.Slot{slot("s1", 1)}
	existing := []models.Booking{reserved("s1", at(10, 0), at(12, 0))}

	_, err := PickSlot(candidates, existing, at(11, 0), at(13, 0))
	if !errors.Is(err, ErrFullyBooked) {
		t.Fatalf("expected ErrFullyBooked, got %v", err)
	}
}

func TestPickSlotNoCapacity(t *testing.T) {
	_, err := PickSlot(nil, nil, at(10, 0), at(12, 0))
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
}

func TestPickSlotBackToBackWindowsDoNotConflict(t *testing.T) {
	candidates := []models.Slot{slot("s1", 1)}
	existing := []models.Booking{reserved("s1", at(10, 0), at(12, 0))}

	got, err := PickSlot(candidates, existing, at(12, 0), at(14, 0))
	if err != nil {
		t.Fatalf("half-open intervals should allow back-to-back bookings: %v", err)
	}
	if got.SlotID != "s1" {
		t.Fatalf("expected s1, got %s", got.SlotID)
	}
}

func TestPickSlotIgnoresReleasedClaims(t *testing.T) {
	candidates := []models.Slot{slot("s1", 1)}
	cancelled := reserved("s1", at(10, 0), at(12, 0))
	cancelled.Status = models.BookingCancelled
	done := reserved("s1", at(10, 0), at(12, 0))
	done.Status = models.BookingCompleted

	_, err := PickSlot(candidates, []models.Booking{cancelled, done}, at(11, 0), at(13, 0))
	if err != nil {
		t.Fatalf("cancelled/completed bookings must not block: %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	b := reserved("s1", at(10, 0), at(12, 0))
	cases := []struct {
		start, end time.Time
		want       bool
	}{
		{at(11, 0), at(13, 0), true},
		{at(9, 0), at(10, 30), true},
		{at(9, 0), at(13, 0), true},
		{at(10, 30), at(11, 30), true},
		{at(12, 0), at(13, 0), false},
		{at(8, 0), at(10, 0), false},
	}
	for _, c := range cases {
		if got := Overlaps(b, c.start, c.end); got != c.want {
			t.Errorf("Overlaps([10,12), [%v,%v)) = %v, want %v", c.start.Hour(), c.end.Hour(), got, c.want)
		}
	}
}

// memLedger mimics the facility-locked read-check-insert sequence so we
// can hammer the allocator from many goroutines without a database.
type memLedger struct {
	mu       sync.Mutex
	bookings []models.Booking
}

func (l *memLedger) allocate(a *Allocator, slots []models.Slot, start, end time.Time) (models.Booking, error) {
	lock := a.FacilityLock("p1")
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	existing := append([]models.Booking(nil), l.bookings...)
	l.mu.Unlock()

	s, err := PickSlot(slots, existing, start, end)
	if err != nil {
		return models.Booking{}, err
	}
	b := reserved(s.SlotID, start, end)
	b.BookingID = s.SlotID + start.String()

	l.mu.Lock()
	l.bookings = append(l.bookings, b)
	l.mu.Unlock()
	return b, nil
}

func TestConcurrentAllocationNeverDoubleBooks(t *testing.T) {
	alloc := NewAllocator(DefaultConfig())
	ledger := &memLedger{}
	slots := []models.Slot{slot("s1", 1), slot("s2", 2), slot("s3", 3)}

	const workers = 24
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.allocate(alloc, slots, at(10, 0), at(12, 0))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrFullyBooked) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != len(slots) {
		t.Fatalf("expected exactly %d winners, got %d", len(slots), wins)
	}

	// No two committed claims on the same slot may overlap.
	for i, a := range ledger.bookings {
		for _, b := range ledger.bookings[i+1:] {
			if a.SlotID == b.SlotID && Overlaps(a, b.StartTime, b.EndTime) {
				t.Fatalf("double booking on slot %s", a.SlotID)
			}
		}
	}
}

func TestFreeSlotCount(t *testing.T) {
	slots := []models.Slot{slot("s1", 1), slot("s2", 2), slot("s3", 3)}
	now := at(11, 0)

	active := reserved("s1", at(10, 0), at(12, 0))
	active.Status = models.BookingActive
	past := reserved("s2", at(8, 0), at(9, 0))

	got := FreeSlotCount(slots, []models.Booking{active, past}, now)
	if got != 2 {
		t.Fatalf("expected 2 free slots, got %d", got)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// New Delhi to Gurgaon city centre is roughly 26-30 km.
	d := HaversineKm(28.6139, 77.2090, 28.4595, 77.0266)
	if d < 20 || d > 35 {
		t.Fatalf("implausible distance %v km", d)
	}
	if z := HaversineKm(28.6139, 77.2090, 28.6139, 77.2090); z != 0 {
		t.Fatalf("distance to self should be 0, got %v", z)
	}
}

func TestCheckProximity(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	facility := models.Facility{
		FacilityID: "p1",
		Location:   models.Coordinates{Latitude: 28.6139, Longitude: 77.2090},
	}

	farLat, farLng := 28.4595, 77.0266
	nearLat, nearLng := 28.6150, 77.2100

	req := Request{IsPreBooked: false, UserLat: &farLat, UserLng: &farLng}
	if err := a.CheckProximity(req, facility); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for distant park-now, got %v", err)
	}

	req = Request{IsPreBooked: true, UserLat: &farLat, UserLng: &farLng}
	if err := a.CheckProximity(req, facility); err != nil {
		t.Fatalf("pre-booking must bypass proximity, got %v", err)
	}

	req = Request{IsPreBooked: false, UserLat: &nearLat, UserLng: &nearLng}
	if err := a.CheckProximity(req, facility); err != nil {
		t.Fatalf("nearby park-now should pass, got %v", err)
	}

	req = Request{IsPreBooked: false}
	if err := a.CheckProximity(req, facility); err != nil {
		t.Fatalf("missing location skips the gate, got %v", err)
	}
}

func TestRequestValidate(t *testing.T) {
	base := Request{FacilityID: "p1", StartTime: at(10, 0), EndTime: at(12, 0)}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := base
	bad.StartTime, bad.EndTime = at(12, 0), at(10, 0)
	if err := bad.Validate(); err == nil {
		t.Fatal("reversed window must fail validation")
	}

	equal := base
	equal.EndTime = equal.StartTime
	if err := equal.Validate(); err == nil {
		t.Fatal("zero-length window must fail validation")
	}

	noFacility := base
	noFacility.FacilityID = ""
	if err := noFacility.Validate(); err == nil {
		t.Fatal("missing facility must fail validation")
	}
}
