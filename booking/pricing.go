package booking

import (
	"math"
	"time"

	"parkwise/models"
)

// Quote is the price breakdown for a reservation window.
type Quote struct {
	TotalAmount   float64
	PreBookingFee float64
}

// Price computes the charge for [start, end) under a facility's pricing
// config. The peak multiplier applies per overlapping hour: each hour of
// the window that intersects the configured peak window is billed at
// hourlyRate*peakMultiplier, the rest at hourlyRate.
func Price(p models.Pricing, start, end time.Time, isPreBooked bool) Quote {
	hours := end.Sub(start).Hours()

	base := baseCharge(p, start, end)

	var fee float64
	if isPreBooked {
		fee = p.PreBookingFixedFee + hours*p.PreBookingExtraCharge
	}

	return Quote{
		TotalAmount:   base + fee,
		PreBookingFee: fee,
	}
}

// SettleAmount bills actual parked duration at exit time, rounded up
// to the next whole currency unit.
func SettleAmount(hourlyRate float64, entry, exit time.Time) (amount float64, durationHours float64) {
	durationHours = exit.Sub(entry).Hours()
	amount = math.Ceil(durationHours * hourlyRate)
	return amount, durationHours
}

// baseCharge walks the window hour by hour so a booking that straddles
// the peak boundary pays the multiplier only on the overlapping part.
func baseCharge(p models.Pricing, start, end time.Time) float64 {
	if p.PeakMultiplier <= 1 || p.PeakHours.Start == "" || p.PeakHours.End == "" {
		return end.Sub(start).Hours() * p.HourlyRate
	}

	var total float64
	for cur := start; cur.Before(end); {
		next := cur.Add(time.Hour)
		if next.After(end) {
			next = end
		}
		frac := next.Sub(cur).Hours()
		rate := p.HourlyRate
		if inPeakWindow(cur, p.PeakHours) {
			rate *= p.PeakMultiplier
		}
		total += frac * rate
		cur = next
	}
	return total
}

// inPeakWindow checks whether an instant falls inside the daily HH:MM
// peak window. Windows that wrap midnight (e.g. 22:00-06:00) are supported.
func inPeakWindow(t time.Time, w models.PeakWindow) bool {
	startMin, ok1 := parseClock(w.Start)
	endMin, ok2 := parseClock(w.End)
	if !ok1 || !ok2 {
		return false
	}

	min := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return min >= startMin && min < endMin
	}
	return min >= startMin || min < endMin
}

func parseClock(s string) (minutes int, ok bool) {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	h = int(s[0]-'0')*10 + int(s[1]-'0')
	m = int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
