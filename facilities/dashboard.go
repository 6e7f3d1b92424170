package facilities

import (
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/globals"
	"parkwise/models"
	"parkwise/mq"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type dashboardSlot struct {
	models.Slot
	Occupied  bool   `json:"occupied"`
	BookingID string `json:"bookingid,omitempty"`
}

// GetDashboard reports totals for a facility. Occupancy is derived from
// the reservation ledger at the time of the request, so the numbers
// cannot drift from the bookings themselves.
func GetDashboard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	facilityID := ps.ByName("facilityid")

	var facility models.Facility
	err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": facilityID}).Decode(&facility)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Facility not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching facility")
		return
	}

	userID, _ := ctx.Value(globals.UserIDKey).(string)
	isSecurity := utils.Contains(facility.SecurityUsers, userID)
	if facility.OwnerID != userID && !isSecurity && !hasRole(ctx, "admin") {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	floorCount, err := db.FloorsCollection.CountDocuments(ctx, bson.M{"facilityid": facilityID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error counting floors")
		return
	}

	slotCursor, err := db.SlotsCollection.Find(ctx, bson.M{"facilityid": facilityID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching slots")
		return
	}
	defer slotCursor.Close(ctx)

	var slots []models.Slot
	if err := slotCursor.All(ctx, &slots); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding slots")
		return
	}

	now := time.Now()
	bookingCursor, err := db.BookingsCollection.Find(ctx, bson.M{
		"facilityid": facilityID,
		"status":     bson.M{"$in": []string{string(models.BookingReserved), string(models.BookingActive)}},
		"startTime":  bson.M{"$lte": now},
		"endTime":    bson.M{"$gt": now},
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching bookings")
		return
	}
	defer bookingCursor.Close(ctx)

	var current []models.Booking
	if err := bookingCursor.All(ctx, &current); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding bookings")
		return
	}

	bySlot := make(map[string]string, len(current))
	for _, b := range current {
		bySlot[b.SlotID] = b.BookingID
	}

	detailed := make([]dashboardSlot, 0, len(slots))
	occupied := 0
	for _, s := range slots {
		bid, taken := bySlot[s.SlotID]
		if taken {
			occupied++
		}
		detailed = append(detailed, dashboardSlot{Slot: s, Occupied: taken, BookingID: bid})
	}

	go mq.Emit(globals.Ctx, "dashboard-viewed", facilityID, facilityID)

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"facility":       facility.Name,
		"totalSlots":     len(slots),
		"occupiedSlots":  occupied,
		"availableSlots": len(slots) - occupied,
		"floors":         floorCount,
		"slots":          detailed,
	})
}
