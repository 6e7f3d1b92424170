package slots

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/globals"
	"parkwise/models"
	"parkwise/rdx"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type createSlotsRequest struct {
	FloorID  string `json:"floorid"`
	NumSlots int    `json:"numSlots"`
	Type     string `json:"type"`
}

// CreateSlots batch-creates slots on a floor, numbering them after the
// highest existing slot number.
func CreateSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var req createSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.NumSlots <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Number of slots must be a positive integer")
		return
	}
	vehicleType := utils.NormalizeVehicleType(req.Type)
	if vehicleType == "" {
		vehicleType = "car"
	}

	var floor models.Floor
	err := db.FloorsCollection.FindOne(ctx, bson.M{"floorid": req.FloorID}).Decode(&floor)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusBadRequest, "Floor does not exist")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching floor")
		return
	}

	if !canManageFacility(ctx, floor.FacilityID) {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	start, err := nextSlotNumber(ctx, req.FloorID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error determining slot number")
		return
	}

	created := make([]models.Slot, 0, req.NumSlots)
	docs := make([]any, 0, req.NumSlots)
	for i := 0; i < req.NumSlots; i++ {
		slot := models.Slot{
			SlotID:     "s" + utils.GenerateRandomString(12),
			FloorID:    req.FloorID,
			FacilityID: floor.FacilityID,
			SlotNumber: start + i,
			Type:       vehicleType,
			CreatedAt:  time.Now(),
		}
		created = append(created, slot)
		docs = append(docs, slot)
	}

	if _, err := db.SlotsCollection.InsertMany(ctx, docs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating slots")
		return
	}

	rdx.InvalidateAvailability(floor.FacilityID)
	utils.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Slots created successfully",
		"slots":   created,
	})
}

// GetSlots lists slots. Security users see only their assigned
// facility; everyone else can filter by ?facilityid=.
func GetSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	filter := bson.M{}
	if hasRole(ctx, "security") {
		assigned, err := assignedFacility(ctx)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Security user not assigned to any facility")
			return
		}
		filter["facilityid"] = assigned
	} else if fid := r.URL.Query().Get("facilityid"); fid != "" {
		filter["facilityid"] = fid
	}

	cursor, err := db.SlotsCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching slots")
		return
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding slots")
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	utils.RespondWithJSON(w, http.StatusOK, slots)
}

// GetSlotsByFloor returns the slot grid for one floor.
func GetSlotsByFloor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()

	cursor, err := db.SlotsCollection.Find(ctx, bson.M{"floorid": ps.ByName("floorid")},
		options.Find().SetSort(bson.D{{Key: "slotNumber", Value: 1}}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching slots")
		return
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding slots")
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	utils.RespondWithJSON(w, http.StatusOK, slots)
}

// UpdateSlot changes a slot's vehicle type.
func UpdateSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	slotID := ps.ByName("slotid")

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.Type == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	res, err := db.SlotsCollection.UpdateOne(ctx,
		bson.M{"slotid": slotID},
		bson.M{"$set": bson.M{"type": utils.NormalizeVehicleType(req.Type)}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating slot")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Slot not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Slot updated"})
}

// DeleteSlot removes a slot unless a live reservation references it.
func DeleteSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	slotID := ps.ByName("slotid")

	count, err := db.BookingsCollection.CountDocuments(ctx, bson.M{
		"slotid": slotID,
		"status": bson.M{"$in": []string{string(models.BookingReserved), string(models.BookingActive)}},
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error checking reservations")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Slot has live reservations")
		return
	}

	var slot models.Slot
	err = db.SlotsCollection.FindOneAndDelete(ctx, bson.M{"slotid": slotID}).Decode(&slot)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Slot not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting slot")
		return
	}

	rdx.InvalidateAvailability(slot.FacilityID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Slot deleted"})
}

func nextSlotNumber(ctx context.Context, floorID string) (int, error) {
	var highest models.Slot
	err := db.SlotsCollection.FindOne(ctx, bson.M{"floorid": floorID},
		options.FindOne().SetSort(bson.D{{Key: "slotNumber", Value: -1}})).Decode(&highest)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	} else if err != nil {
		return 0, err
	}
	return highest.SlotNumber + 1, nil
}

func canManageFacility(ctx context.Context, facilityID string) bool {
	if hasRole(ctx, "admin") {
		return true
	}

	userID, _ := ctx.Value(globals.UserIDKey).(string)

	var facility models.Facility
	if err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": facilityID}).Decode(&facility); err != nil {
		return false
	}
	if facility.OwnerID == userID {
		return true
	}

	if hasRole(ctx, "security") {
		assigned, err := assignedFacility(ctx)
		return err == nil && assigned == facilityID
	}
	return false
}

func hasRole(ctx context.Context, role string) bool {
	roles, _ := ctx.Value(globals.RoleKey).([]string)
	return utils.Contains(roles, role)
}

func assignedFacility(ctx context.Context) (string, error) {
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
