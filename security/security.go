package security

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parkwise/booking"
	"parkwise/db"
	"parkwise/globals"
	"parkwise/models"
	"parkwise/mq"
	"parkwise/rdx"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Walk-in vehicles have no agreed departure time. The ledger needs an
// end for the occupancy window, so they hold the slot for the day and
// the real charge is settled from entry/exit timestamps at the gate.
const walkInHold = 24 * time.Hour

var errAlreadySettled = errors.New("vehicle already settled")

type Handlers struct {
	Alloc *booking.Allocator
}

func NewHandlers(alloc *booking.Allocator) *Handlers {
	return &Handlers{Alloc: alloc}
}

type checkInRequest struct {
	// Pre-booked arrival: only the ticket is needed.
	TicketID string `json:"ticketId,omitempty"`

	// Walk-in: floor plus vehicle details.
	FloorID string `json:"floorid,omitempty"`
	Number  string `json:"number"`
	Type    string `json:"type,omitempty"`
}

// CheckIn admits a vehicle at the gate. A request carrying a ticketId
// activates the matching pre-booking; anything else is a walk-in that
// gets the first free slot on the requested floor and a fresh ticket.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.Number == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Vehicle number is required")
		return
	}

	if req.TicketID != "" {
		h.checkInPreBooked(ctx, w, req)
		return
	}
	h.checkInWalkIn(ctx, w, req)
}

func (h *Handlers) checkInPreBooked(ctx context.Context, w http.ResponseWriter, req checkInRequest) {
	var bkg models.Booking
	err := db.BookingsCollection.FindOne(ctx, bson.M{"ticketId": req.TicketID}).Decode(&bkg)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Invalid ticket")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching booking")
		return
	}

	now := time.Now()
	if err := booking.Transition(&bkg, models.BookingActive, now); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !guardsFacility(ctx, bkg.FacilityID) {
		utils.RespondWithError(w, http.StatusForbidden, "Booking is not for your assigned facility")
		return
	}

	// Guard on the reserved status so a concurrent check-in of the
	// same ticket cannot activate it twice.
	res, err := db.BookingsCollection.UpdateOne(ctx,
		bson.M{"bookingid": bkg.BookingID, "status": models.BookingReserved},
		bson.M{"$set": bson.M{"status": models.BookingActive, "updatedAt": now}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error activating booking")
		return
	}
	if res.ModifiedCount == 0 {
		utils.RespondWithError(w, http.StatusConflict, "Booking was already checked in")
		return
	}

	vehicle := models.Vehicle{
		VehicleID:  "v" + utils.GenerateRandomString(12),
		UserID:     bkg.UserID,
		FacilityID: bkg.FacilityID,
		SlotID:     bkg.SlotID,
		Number:     req.Number,
		Type:       utils.NormalizeVehicleType(req.Type),
		EntryTime:  &now,
		TicketID:   bkg.TicketID,
		BookingID:  bkg.BookingID,
		CreatedAt:  now,
	}

	if _, err := db.VehiclesCollection.InsertOne(ctx, vehicle); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error recording vehicle")
		return
	}

	rdx.InvalidateAvailability(bkg.FacilityID)
	go mq.Emit(globals.Ctx, "vehicle-checked-in", bkg.FacilityID, vehicle.VehicleID)
	utils.RespondWithJSON(w, http.StatusCreated, vehicle)
}

func (h *Handlers) checkInWalkIn(ctx context.Context, w http.ResponseWriter, req checkInRequest) {
	if req.FloorID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Floor is required for walk-in")
		return
	}

	var floor models.Floor
	if err := db.FloorsCollection.FindOne(ctx, bson.M{"floorid": req.FloorID}).Decode(&floor); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Floor does not exist")
		return
	}

	if !guardsFacility(ctx, floor.FacilityID) {
		utils.RespondWithError(w, http.StatusForbidden, "Floor is not in your assigned facility")
		return
	}

	userID, _ := ctx.Value(globals.UserIDKey).(string)
	now := time.Now()
	vehicleType := utils.NormalizeVehicleType(req.Type)
	if vehicleType == "" {
		vehicleType = "car"
	}

	lock := h.Alloc.FacilityLock(floor.FacilityID)
	lock.Lock()
	vehicle, bkg, err := h.admitWalkIn(ctx, floor, vehicleType, req.Number, userID, now)
	lock.Unlock()

	if err == booking.ErrFullyBooked {
		utils.RespondWithError(w, http.StatusBadRequest, "No available slots on this floor")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error admitting vehicle")
		return
	}

	rdx.InvalidateAvailability(floor.FacilityID)
	go mq.Emit(globals.Ctx, "vehicle-checked-in", floor.FacilityID, vehicle.VehicleID)
	utils.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"vehicle": vehicle,
		"booking": bkg,
	})
}

// admitWalkIn runs under the facility allocation lock. It picks the
// lowest free slot on the floor for an immediate window and writes the
// booking plus the vehicle record.
func (h *Handlers) admitWalkIn(ctx context.Context, floor models.Floor, vehicleType, number, userID string, now time.Time) (models.Vehicle, models.Booking, error) {
	slotCursor, err := db.SlotsCollection.Find(ctx, bson.M{"floorid": floor.FloorID, "type": vehicleType})
	if err != nil {
		return models.Vehicle{}, models.Booking{}, err
	}
	var candidates []models.Slot
	if err := slotCursor.All(ctx, &candidates); err != nil {
		return models.Vehicle{}, models.Booking{}, err
	}

	end := now.Add(walkInHold)

	slotIDs := make([]string, 0, len(candidates))
	for _, s := range candidates {
		slotIDs = append(slotIDs, s.SlotID)
	}
	var existing []models.Booking
	if len(slotIDs) > 0 {
		cur, err := db.BookingsCollection.Find(ctx, bson.M{
			"slotid":    bson.M{"$in": slotIDs},
			"status":    bson.M{"$in": []string{string(models.BookingReserved), string(models.BookingActive)}},
			"startTime": bson.M{"$lt": end},
			"endTime":   bson.M{"$gt": now},
		})
		if err != nil {
			return models.Vehicle{}, models.Booking{}, err
		}
		if err := cur.All(ctx, &existing); err != nil {
			return models.Vehicle{}, models.Booking{}, err
		}
	}

	slot, err := booking.PickSlot(candidates, existing, now, end)
	if err != nil {
		return models.Vehicle{}, models.Booking{}, err
	}

	ticketID := utils.GenerateTicketCode()
	bkg := models.Booking{
		BookingID:     "b" + utils.GenerateRandomString(12),
		UserID:        userID,
		FacilityID:    floor.FacilityID,
		SlotID:        slot.SlotID,
		StartTime:     now,
		EndTime:       end,
		Status:        models.BookingActive,
		IsPreBooked:   false,
		PaymentStatus: models.PaymentPending,
		TicketID:      ticketID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := db.BookingsCollection.InsertOne(ctx, bkg); err != nil {
		return models.Vehicle{}, models.Booking{}, err
	}

	vehicle := models.Vehicle{
		VehicleID:  "v" + utils.GenerateRandomString(12),
		UserID:     userID,
		FacilityID: floor.FacilityID,
		SlotID:     slot.SlotID,
		Number:     number,
		Type:       vehicleType,
		EntryTime:  &now,
		TicketID:   ticketID,
		BookingID:  bkg.BookingID,
		CreatedAt:  now,
	}
	if _, err := db.VehiclesCollection.InsertOne(ctx, vehicle); err != nil {
		return models.Vehicle{}, models.Booking{}, err
	}

	return vehicle, bkg, nil
}

// ExitAmount quotes what a parked vehicle owes right now without
// releasing the slot.
func (h *Handlers) ExitAmount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var req struct {
		VehicleID string `json:"vehicleid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var vehicle models.Vehicle
	err := db.VehiclesCollection.FindOne(ctx, bson.M{"vehicleid": req.VehicleID}).Decode(&vehicle)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Vehicle not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching vehicle")
		return
	}

	if !guardsFacility(ctx, vehicle.FacilityID) {
		utils.RespondWithError(w, http.StatusForbidden, "Vehicle is not in your assigned facility")
		return
	}
	if vehicle.EntryTime == nil || vehicle.ExitTime != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Vehicle is not currently parked")
		return
	}

	amount, hours := booking.SettleAmount(h.hourlyRate(ctx, vehicle.FacilityID), *vehicle.EntryTime, time.Now())
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"vehicle":       vehicle,
		"durationHours": hours,
		"amount":        amount,
	})
}

// Checkout settles the bill and releases the slot. Payment record,
// booking completion and vehicle exit commit or abort as one unit.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	vehicleID := ps.ByName("vehicleid")

	var req struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}

	var vehicle models.Vehicle
	err := db.VehiclesCollection.FindOne(ctx, bson.M{"vehicleid": vehicleID}).Decode(&vehicle)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Vehicle not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching vehicle")
		return
	}

	if !guardsFacility(ctx, vehicle.FacilityID) {
		utils.RespondWithError(w, http.StatusForbidden, "Vehicle is not in your assigned facility")
		return
	}
	if vehicle.EntryTime == nil || vehicle.ExitTime != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Vehicle is not currently parked")
		return
	}

	exitTime := time.Now()
	amount, hours := booking.SettleAmount(h.hourlyRate(ctx, vehicle.FacilityID), *vehicle.EntryTime, exitTime)

	payment := models.PaymentRecord{
		PaymentID:     "pay" + utils.GenerateRandomString(12),
		UserID:        vehicle.UserID,
		VehicleID:     vehicle.VehicleID,
		FacilityID:    vehicle.FacilityID,
		SlotID:        vehicle.SlotID,
		BookingID:     vehicle.BookingID,
		Amount:        amount,
		DurationHours: hours,
		PaymentMethod: req.PaymentMethod,
		PaidAt:        exitTime,
	}

	session, err := db.Client.StartSession()
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error starting settlement")
		return
	}
	defer session.EndSession(ctx)

	vehicleFilter, vehicleSet, bookingFilter, bookingSet := settlementUpdates(vehicle, exitTime)

	// The filters re-check what the unlocked read above saw, so two
	// concurrent checkouts of the same vehicle cannot both settle.
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if _, err := db.PaymentsCollection.InsertOne(sc, payment); err != nil {
			return nil, err
		}
		res, err := db.VehiclesCollection.UpdateOne(sc, vehicleFilter, vehicleSet)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, errAlreadySettled
		}
		if vehicle.BookingID != "" {
			res, err := db.BookingsCollection.UpdateOne(sc, bookingFilter, bookingSet)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, errAlreadySettled
			}
		}
		return nil, nil
	})
	if errors.Is(err, errAlreadySettled) {
		utils.RespondWithError(w, http.StatusConflict, "Vehicle was already checked out")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Settlement failed")
		return
	}

	rdx.InvalidateAvailability(vehicle.FacilityID)
	go mq.Emit(globals.Ctx, "vehicle-checked-out", vehicle.FacilityID, vehicle.VehicleID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message":       "Payment processed and vehicle exited successfully",
		"payment":       payment,
		"durationHours": hours,
		"amount":        amount,
	})
}

// settlementUpdates builds the guarded writes for one checkout. The
// vehicle must still be parked and the booking still active when the
// transaction applies them; a stale match means another checkout won.
func settlementUpdates(vehicle models.Vehicle, exitTime time.Time) (vehicleFilter, vehicleSet, bookingFilter, bookingSet bson.M) {
	vehicleFilter = bson.M{"vehicleid": vehicle.VehicleID, "exitTime": nil}
	vehicleSet = bson.M{"$set": bson.M{"exitTime": exitTime}}
	bookingFilter = bson.M{"bookingid": vehicle.BookingID, "status": models.BookingActive}
	bookingSet = bson.M{"$set": bson.M{
		"status":        models.BookingCompleted,
		"paymentStatus": models.PaymentPaid,
		"endTime":       exitTime,
		"updatedAt":     exitTime,
	}}
	return vehicleFilter, vehicleSet, bookingFilter, bookingSet
}

type occupiedSlot struct {
	SlotID        string    `json:"slotid"`
	SlotNumber    int       `json:"slotNumber"`
	FloorID       string    `json:"floorid"`
	FloorName     string    `json:"floorName,omitempty"`
	FloorNumber   int       `json:"floorNumber"`
	VehicleID     string    `json:"vehicleid"`
	VehicleNumber string    `json:"vehicleNumber"`
	VehicleType   string    `json:"vehicleType"`
	EntryTime     time.Time `json:"entryTime"`
}

// OccupiedSlots lists the currently parked vehicles of the caller's
// assigned facility, joined with slot and floor details for the exit desk.
func (h *Handlers) OccupiedSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	facilityID, err := callerFacility(ctx)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Security user not assigned to any facility")
		return
	}

	cursor, err := db.VehiclesCollection.Find(ctx, bson.M{
		"facilityid": facilityID,
		"entryTime":  bson.M{"$ne": nil},
		"exitTime":   nil,
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching vehicles")
		return
	}
	defer cursor.Close(ctx)

	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding vehicles")
		return
	}

	result := make([]occupiedSlot, 0, len(vehicles))
	for _, v := range vehicles {
		var slot models.Slot
		if err := db.SlotsCollection.FindOne(ctx, bson.M{"slotid": v.SlotID}).Decode(&slot); err != nil {
			continue
		}
		var floor models.Floor
		_ = db.FloorsCollection.FindOne(ctx, bson.M{"floorid": slot.FloorID}).Decode(&floor)

		entry := time.Time{}
		if v.EntryTime != nil {
			entry = *v.EntryTime
		}
		result = append(result, occupiedSlot{
			SlotID:        slot.SlotID,
			SlotNumber:    slot.SlotNumber,
			FloorID:       slot.FloorID,
			FloorName:     floor.Name,
			FloorNumber:   floor.Number,
			VehicleID:     v.VehicleID,
			VehicleNumber: v.Number,
			VehicleType:   v.Type,
			EntryTime:     entry,
		})
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// hourlyRate prefers the facility's configured rate and falls back to
// the walk-in default when the facility has none.
func (h *Handlers) hourlyRate(ctx context.Context, facilityID string) float64 {
	var facility models.Facility
	if err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": facilityID}).Decode(&facility); err == nil {
		if facility.Pricing.HourlyRate > 0 {
			return facility.Pricing.HourlyRate
		}
	}
	return h.Alloc.Config().WalkInHourlyRate
}

// guardsFacility reports whether the caller may act at the gate of a
// facility. Admins act anywhere; security users only at their own.
func guardsFacility(ctx context.Context, facilityID string) bool {
	roles, _ := ctx.Value(globals.RoleKey).([]string)
	if utils.Contains(roles, "admin") {
		return true
	}
	if !utils.Contains(roles, "security") {
		return false
	}
	assigned, err := callerFacility(ctx)
	return err == nil && assigned == facilityID
}

func callerFacility(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(globals.UserIDKey).(string)
	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		return "", err
	}
	if user.AssignedFacility == "" {
		return "", mongo.ErrNoDocuments
	}
	return user.AssignedFacility, nil
}
