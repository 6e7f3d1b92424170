package models

import "time"

type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Booking struct {
	BookingID     string        `json:"bookingid" bson:"bookingid"`
	UserID        string        `json:"userId" bson:"userId"`
	FacilityID    string        `json:"facilityid" bson:"facilityid"`
	SlotID        string        `json:"slotid" bson:"slotid"`
	StartTime     time.Time     `json:"startTime" bson:"startTime"`
	EndTime       time.Time     `json:"endTime" bson:"endTime"`
	Status        BookingStatus `json:"status" bson:"status"`
	TotalAmount   float64       `json:"totalAmount" bson:"totalAmount"`
	IsPreBooked   bool          `json:"isPreBooked" bson:"isPreBooked"`
	PaymentStatus PaymentStatus `json:"paymentStatus" bson:"paymentStatus"`
	PreBookingFee float64       `json:"preBookingFee" bson:"preBookingFee"`

	// Policy constants captured at creation time so later policy changes
	// never retroactively affect an existing booking. Minutes.
	ArrivalWindow int `json:"arrivalWindow" bson:"arrivalWindow"`
	GracePeriod   int `json:"gracePeriod" bson:"gracePeriod"`

	TicketID  string    `json:"ticketId" bson:"ticketId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Vehicle struct {
	VehicleID  string     `json:"vehicleid" bson:"vehicleid"`
	UserID     string     `json:"userId" bson:"userId"`
	FacilityID string     `json:"facilityid" bson:"facilityid"`
	SlotID     string     `json:"slotid" bson:"slotid"`
	Number     string     `json:"number" bson:"number"`
	Type       string     `json:"type" bson:"type"`
	EntryTime  *time.Time `json:"entryTime,omitempty" bson:"entryTime,omitempty"`
	ExitTime   *time.Time `json:"exitTime,omitempty" bson:"exitTime,omitempty"`
	TicketID   string     `json:"ticketId,omitempty" bson:"ticketId,omitempty"`
	BookingID  string     `json:"bookingid,omitempty" bson:"bookingid,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}

type PaymentRecord struct {
	PaymentID     string    `json:"paymentid" bson:"paymentid"`
	UserID        string    `json:"userId" bson:"userId"`
	VehicleID     string    `json:"vehicleid,omitempty" bson:"vehicleid,omitempty"`
	FacilityID    string    `json:"facilityid,omitempty" bson:"facilityid,omitempty"`
	SlotID        string    `json:"slotid,omitempty" bson:"slotid,omitempty"`
	BookingID     string    `json:"bookingid,omitempty" bson:"bookingid,omitempty"`
	Amount        float64   `json:"amount" bson:"amount"`
	DurationHours float64   `json:"duration" bson:"duration"`
	PaymentMethod string    `json:"paymentMethod" bson:"paymentMethod"` // cash, online, qr
	Description   string    `json:"description,omitempty" bson:"description,omitempty"`
	PaidAt        time.Time `json:"paidAt" bson:"paidAt"`
}
