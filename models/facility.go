package models

import "time"

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// PeakWindow is a daily window in "HH:MM" local facility time.
type PeakWindow struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

type Pricing struct {
	HourlyRate            float64    `json:"hourlyRate" bson:"hourlyRate"`
	DailyRate             float64    `json:"dailyRate" bson:"dailyRate"`
	PeakMultiplier        float64    `json:"peakMultiplier" bson:"peakMultiplier"`
	PeakHours             PeakWindow `json:"peakHours" bson:"peakHours"`
	PreBookingFixedFee    float64    `json:"fixedPreBookingFee" bson:"fixedPreBookingFee"`
	PreBookingExtraCharge float64    `json:"preBookingExtraCharge" bson:"preBookingExtraCharge"` // per hour
}

type Facility struct {
	FacilityID        string      `json:"facilityid" bson:"facilityid"`
	Name              string      `json:"name" bson:"name"`
	Address           string      `json:"address" bson:"address"`
	Location          Coordinates `json:"location" bson:"location"`
	OwnerID           string      `json:"ownerId" bson:"ownerId"`
	SecurityUsers     []string    `json:"securityUsers,omitempty" bson:"securityUsers,omitempty"`
	Pricing           Pricing     `json:"pricing" bson:"pricing"`
	Status            string      `json:"status" bson:"status"` // active, inactive
	TemporarilyClosed bool        `json:"temporarilyClosed" bson:"temporarilyClosed"`
	UpiID             string      `json:"upiId,omitempty" bson:"upiId,omitempty"`
	Amenities         []string    `json:"amenities,omitempty" bson:"amenities,omitempty"`
	Banner            string      `json:"banner,omitempty" bson:"banner,omitempty"`
	CreatedAt         time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt" bson:"updatedAt"`

	// Computed for nearby search responses, never persisted.
	Distance          float64 `json:"distance,omitempty" bson:"-"`
	AvailableSlots    int     `json:"availableSlots" bson:"-"`
	OperationalStatus string  `json:"operationalStatus,omitempty" bson:"-"` // open, closed, full
}

type Floor struct {
	FloorID    string    `json:"floorid" bson:"floorid"`
	FacilityID string    `json:"facilityid" bson:"facilityid"`
	Name       string    `json:"name,omitempty" bson:"name,omitempty"`
	Number     int       `json:"number" bson:"number"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

type Slot struct {
	SlotID     string    `json:"slotid" bson:"slotid"`
	FloorID    string    `json:"floorid" bson:"floorid"`
	FacilityID string    `json:"facilityid" bson:"facilityid"`
	SlotNumber int       `json:"slotNumber" bson:"slotNumber"`
	Type       string    `json:"type" bson:"type"` // car, bike
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
