package facilities

import (
	"testing"

	"parkwise/models"
)

func TestSortByProximity(t *testing.T) {
	mk := func(id string, dist float64, free int, rate float64) models.Facility {
		f := models.Facility{FacilityID: id}
		f.Distance = dist
		f.AvailableSlots = free
		f.Pricing.HourlyRate = rate
		return f
	}

	results := []models.Facility{
		mk("far", 4.0, 50, 10),
		mk("near-expensive", 1.0, 5, 60),
		mk("near-cheap", 1.0, 5, 20),
		mk("near-busy", 1.0, 1, 20),
		mk("mid", 2.5, 0, 10),
	}

	sortByProximity(results)

	want := []string{"near-cheap", "near-expensive", "near-busy", "mid", "far"}
	for i, id := range want {
		if results[i].FacilityID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, results[i].FacilityID)
		}
	}
}

func TestOperationalStatus(t *testing.T) {
	open := models.Facility{Status: "active"}
	if got := operationalStatus(open, 3); got != "open" {
		t.Errorf("want open, got %s", got)
	}

	full := models.Facility{Status: "active"}
	if got := operationalStatus(full, 0); got != "full" {
		t.Errorf("want full, got %s", got)
	}

	closed := models.Facility{Status: "active", TemporarilyClosed: true}
	if got := operationalStatus(closed, 3); got != "closed" {
		t.Errorf("want closed, got %s", got)
	}

	inactive := models.Facility{Status: "inactive"}
	if got := operationalStatus(inactive, 3); got != "closed" {
		t.Errorf("want closed for inactive, got %s", got)
	}
}
