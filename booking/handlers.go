package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/models"
	"parkwise/mq"
	"parkwise/rdx"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handlers glues the allocator/pricing/policy engines to storage.
type Handlers struct {
	Alloc *Allocator
}

func NewHandlers(alloc *Allocator) *Handlers {
	return &Handlers{Alloc: alloc}
}

type createBookingRequest struct {
	FacilityID  string   `json:"facilityId"`
	VehicleType string   `json:"vehicleType"`
	StartTime   string   `json:"startTime"` // RFC3339
	EndTime     string   `json:"endTime"`
	IsPreBooked bool     `json:"isPreBooked"`
	UserLat     *float64 `json:"userLat,omitempty"`
	UserLng     *float64 `json:"userLng,omitempty"`
}

// CreateBooking allocates a slot and persists the reservation.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	var body createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if body.VehicleType == "" {
		body.VehicleType = "car"
	}

	start, err1 := time.Parse(time.RFC3339, body.StartTime)
	end, err2 := time.Parse(time.RFC3339, body.EndTime)
	if err1 != nil || err2 != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "startTime and endTime must be RFC3339 timestamps")
		return
	}

	req := Request{
		FacilityID:  body.FacilityID,
		VehicleType: utils.NormalizeVehicleType(body.VehicleType),
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		IsPreBooked: body.IsPreBooked,
		UserLat:     body.UserLat,
		UserLng:     body.UserLng,
	}
	if err := req.Validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var facility models.Facility
	if err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": req.FacilityID}).Decode(&facility); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "parking not found")
		return
	}
	if facility.TemporarilyClosed || facility.Status != "active" {
		utils.RespondWithError(w, http.StatusBadRequest, "parking is closed")
		return
	}

	if err := h.Alloc.CheckProximity(req, facility); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Candidate read, conflict check and insert happen under the
	// facility lock so concurrent requests cannot claim the same slot.
	lock := h.Alloc.FacilityLock(req.FacilityID)
	lock.Lock()
	booking, err := h.allocateLocked(ctx, req, facility, userID)
	lock.Unlock()

	if err != nil {
		switch {
		case errors.Is(err, ErrNoCapacity), errors.Is(err, ErrFullyBooked):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "failed to create booking")
		}
		return
	}

	rdx.InvalidateAvailability(req.FacilityID)
	go mq.Emit(context.Background(), "booking-created", booking.FacilityID, booking.BookingID)

	utils.RespondWithJSON(w, http.StatusCreated, booking)
}

func (h *Handlers) allocateLocked(ctx context.Context, req Request, facility models.Facility, userID string) (models.Booking, error) {
	candidates, err := findSlots(ctx, bson.M{"facilityid": req.FacilityID, "type": req.VehicleType})
	if err != nil {
		return models.Booking{}, err
	}
	if len(candidates) == 0 {
		return models.Booking{}, ErrNoCapacity
	}

	slotIDs := make([]string, len(candidates))
	for i, s := range candidates {
		slotIDs[i] = s.SlotID
	}

	existing, err := findBookings(ctx, bson.M{
		"slotid": bson.M{"$in": slotIDs},
		"status": bson.M{"$in": []models.BookingStatus{models.BookingReserved, models.BookingActive}},
		"startTime": bson.M{"$lt": req.EndTime},
		"endTime":   bson.M{"$gt": req.StartTime},
	})
	if err != nil {
		return models.Booking{}, err
	}

	slot, err := PickSlot(candidates, existing, req.StartTime, req.EndTime)
	if err != nil {
		return models.Booking{}, err
	}

	booking := h.Alloc.NewBooking(req, facility, slot, userID, time.Now().UTC())
	if _, err := db.BookingsCollection.InsertOne(ctx, booking); err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

// GetUserBookings lists the requesting user's bookings, newest first.
func (h *Handlers) GetUserBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := db.BookingsCollection.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	bookings := []models.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

// GetFacilityBookings lists every booking at a facility (staff view).
func (h *Handlers) GetFacilityBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	facilityID := ps.ByName("facilityid")
	userID := utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var facility models.Facility
	if err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": facilityID}).Decode(&facility); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "parking not found")
		return
	}
	if !canViewFacility(ctx, facility, userID) {
		utils.RespondWithError(w, http.StatusForbidden, ErrAccessDenied.Error())
		return
	}

	bookings, err := findBookings(ctx, bson.M{"facilityid": facilityID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

// CancelBooking applies the cancellation policy and flips the status.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID := ps.ByName("bookingid")
	userID := utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var b models.Booking
	if err := db.BookingsCollection.FindOne(ctx, bson.M{"bookingid": bookingID}).Decode(&b); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "booking not found")
		return
	}

	freeSlots, err := facilityFreeSlots(ctx, b.FacilityID, time.Now().UTC())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if err := h.Alloc.CanCancel(b, userID, freeSlots, time.Now().UTC()); err != nil {
		switch err.(type) {
		case InvalidStateError:
			utils.RespondWithError(w, http.StatusBadRequest, "cannot cancel active or completed booking")
		case CancellationDenied:
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusForbidden, ErrAccessDenied.Error())
		}
		return
	}

	// Guard the update with the same status filter so a concurrent
	// check-in cannot race the cancellation.
	res := db.BookingsCollection.FindOneAndUpdate(ctx,
		bson.M{"bookingid": bookingID, "status": models.BookingReserved},
		bson.M{"$set": bson.M{"status": models.BookingCancelled, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var updated models.Booking
	if err := res.Decode(&updated); err != nil {
		utils.RespondWithError(w, http.StatusConflict, "booking state changed, try again")
		return
	}

	rdx.InvalidateAvailability(updated.FacilityID)
	go mq.Emit(context.Background(), "booking-cancelled", updated.FacilityID, updated.BookingID)

	utils.SendResponse(w, http.StatusOK, updated, "Booking cancelled", nil)
}

// GetBookingByTicket resolves a ticket code for the check-in desk.
func (h *Handlers) GetBookingByTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ticketID := ps.ByName("ticketid")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := db.BookingsCollection.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&b); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "invalid ticket ID")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// ---------- shared query helpers ----------

func findSlots(ctx context.Context, filter bson.M) ([]models.Slot, error) {
	cur, err := db.SlotsCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var slots []models.Slot
	if err := cur.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func findBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	cur, err := db.BookingsCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// facilityFreeSlots derives live occupancy from the ledger.
func facilityFreeSlots(ctx context.Context, facilityID string, now time.Time) (int, error) {
	slots, err := findSlots(ctx, bson.M{"facilityid": facilityID})
	if err != nil {
		return 0, err
	}
	bookings, err := findBookings(ctx, bson.M{
		"facilityid": facilityID,
		"status":     bson.M{"$in": []models.BookingStatus{models.BookingReserved, models.BookingActive}},
	})
	if err != nil {
		return 0, err
	}
	return FreeSlotCount(slots, bookings, now), nil
}

// FacilityFreeSlots is the exported ledger-derived occupancy count,
// shared by nearby search, dashboards and the availability feed.
func FacilityFreeSlots(ctx context.Context, facilityID string, now time.Time) (int, error) {
	if n, ok := rdx.CachedAvailability(facilityID); ok {
		return n, nil
	}
	n, err := facilityFreeSlots(ctx, facilityID, now)
	if err != nil {
		return 0, err
	}
	rdx.CacheAvailability(facilityID, n)
	return n, nil
}

func canViewFacility(ctx context.Context, facility models.Facility, userID string) bool {
	if facility.OwnerID == userID || utils.Contains(facility.SecurityUsers, userID) {
		return true
	}
	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		return false
	}
	return user.HasRole("admin")
}
