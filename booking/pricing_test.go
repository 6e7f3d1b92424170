package booking

import (
	"math"
	"testing"
	"time"

	"parkwise/models"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, time.UTC)
}

func TestPriceWalkIn(t *testing.T) {
	p := models.Pricing{HourlyRate: 10}
	q := Price(p, at(10, 0), at(12, 0), false)
	if q.TotalAmount != 20 {
		t.Errorf("expected total 20, got %v", q.TotalAmount)
	}
	if q.PreBookingFee != 0 {
		t.Errorf("expected no pre-booking fee, got %v", q.PreBookingFee)
	}
}

func TestPricePreBooked(t *testing.T) {
	p := models.Pricing{
		HourlyRate:            10,
		PreBookingFixedFee:    5,
		PreBookingExtraCharge: 2,
	}
	q := Price(p, at(10, 0), at(12, 0), true)
	if q.PreBookingFee != 9 {
		t.Errorf("expected fee 9 (5 fixed + 2h*2), got %v", q.PreBookingFee)
	}
	if q.TotalAmount != 29 {
		t.Errorf("expected total 29, got %v", q.TotalAmount)
	}
}

func TestPriceFractionalHours(t *testing.T) {
	p := models.Pricing{HourlyRate: 10}
	q := Price(p, at(10, 0), at(10, 30), false)
	if q.TotalAmount != 5 {
		t.Errorf("expected total 5 for half an hour, got %v", q.TotalAmount)
	}
}

func TestPricePeakProration(t *testing.T) {
	p := models.Pricing{
		HourlyRate:     10,
		PeakMultiplier: 1.5,
		PeakHours:      models.PeakWindow{Start: "08:00", End: "11:00"},
	}
	// 10:00-12:00: one hour inside peak (15), one outside (10).
	q := Price(p, at(10, 0), at(12, 0), false)
	if q.TotalAmount != 25 {
		t.Errorf("expected total 25 with peak proration, got %v", q.TotalAmount)
	}
}

func TestPricePeakWholeWindowInside(t *testing.T) {
	p := models.Pricing{
		HourlyRate:     10,
		PeakMultiplier: 2,
		PeakHours:      models.PeakWindow{Start: "08:00", End: "18:00"},
	}
	q := Price(p, at(9, 0), at(11, 0), false)
	if q.TotalAmount != 40 {
		t.Errorf("expected total 40 fully inside peak, got %v", q.TotalAmount)
	}
}

func TestPricePeakWrapsMidnight(t *testing.T) {
	p := models.Pricing{
		HourlyRate:     10,
		PeakMultiplier: 2,
		PeakHours:      models.PeakWindow{Start: "22:00", End: "02:00"},
	}
	// 23:00-01:00 next day, both hours inside the wrapped window.
	start := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	q := Price(p, start, start.Add(2*time.Hour), false)
	if q.TotalAmount != 40 {
		t.Errorf("expected total 40 inside wrapped peak, got %v", q.TotalAmount)
	}
}

func TestSettleAmountRoundsUp(t *testing.T) {
	entry := at(10, 0)
	exit := at(11, 10)
	amount, hours := SettleAmount(40, entry, exit)
	if amount != 47 { // 40 * (7/6) = 46.66..., ceil -> 47
		t.Errorf("expected settlement 47, got %v", amount)
	}
	if math.Abs(hours-7.0/6.0) > 1e-9 {
		t.Errorf("unexpected duration %v", hours)
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "8:00", "24:00", "aa:bb", "08-00"} {
		if _, ok := parseClock(s); ok {
			t.Errorf("parseClock(%q) should fail", s)
		}
	}
	if m, ok := parseClock("08:30"); !ok || m != 510 {
		t.Errorf("parseClock(08:30) = %d, %v", m, ok)
	}
}
