package security

import (
	"context"
	"testing"
	"time"

	"parkwise/globals"
	"parkwise/models"

	"go.mongodb.org/mongo-driver/bson"
)

func parkedVehicle() models.Vehicle {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.Vehicle{
		VehicleID:  "v1",
		UserID:     "u1",
		FacilityID: "p1",
		SlotID:     "s1",
		BookingID:  "b1",
		Number:     "KA01AB1234",
		Type:       "car",
		EntryTime:  &entry,
	}
}

func TestSettlementUpdatesGuardRepeatedCheckout(t *testing.T) {
	v := parkedVehicle()
	exit := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	vehicleFilter, vehicleSet, bookingFilter, bookingSet := settlementUpdates(v, exit)

	// A second checkout finds exitTime set and the booking completed,
	// so neither filter may match anything anymore.
	if got, ok := vehicleFilter["exitTime"]; !ok || got != nil {
		t.Fatalf("vehicle filter must require exitTime nil, got %v", vehicleFilter)
	}
	if vehicleFilter["vehicleid"] != "v1" {
		t.Fatalf("vehicle filter targets wrong vehicle: %v", vehicleFilter)
	}
	if bookingFilter["status"] != models.BookingActive {
		t.Fatalf("booking filter must require active status, got %v", bookingFilter)
	}
	if bookingFilter["bookingid"] != "b1" {
		t.Fatalf("booking filter targets wrong booking: %v", bookingFilter)
	}

	vs, ok := vehicleSet["$set"].(bson.M)
	if !ok || vs["exitTime"] != exit {
		t.Fatalf("vehicle update must set the exit time, got %v", vehicleSet)
	}
	bs, ok := bookingSet["$set"].(bson.M)
	if !ok {
		t.Fatalf("booking update must be a $set, got %v", bookingSet)
	}
	if bs["status"] != models.BookingCompleted {
		t.Fatalf("booking must complete on checkout, got %v", bs["status"])
	}
	if bs["paymentStatus"] != models.PaymentPaid {
		t.Fatalf("booking must be marked paid, got %v", bs["paymentStatus"])
	}
	if bs["endTime"] != exit {
		t.Fatalf("booking endTime must truncate to the exit, got %v", bs["endTime"])
	}
}

func TestGuardsFacilityByRole(t *testing.T) {
	admin := context.WithValue(context.Background(), globals.RoleKey, []string{"admin"})
	if !guardsFacility(admin, "p-any") {
		t.Fatal("admins act at any facility")
	}

	user := context.WithValue(context.Background(), globals.RoleKey, []string{"user"})
	if guardsFacility(user, "p1") {
		t.Fatal("plain users never guard a gate")
	}

	if guardsFacility(context.Background(), "p1") {
		t.Fatal("missing roles never guard a gate")
	}
}
