package floors

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/globals"
	"parkwise/models"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type createFloorRequest struct {
	Name       string `json:"name"`
	Number     int    `json:"number"`
	FacilityID string `json:"facilityid"`
}

// CreateFloor adds a floor to a facility. Security users always create
// floors in their assigned facility regardless of the request body.
func CreateFloor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var req createFloorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	facilityID := req.FacilityID
	if hasRole(ctx, "security") {
		assigned, err := assignedFacility(ctx)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Security user not assigned to any facility")
			return
		}
		facilityID = assigned
	} else if facilityID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Facility is required")
		return
	}

	err := db.FloorsCollection.FindOne(ctx, bson.M{"facilityid": facilityID, "number": req.Number}).Err()
	if err == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Floor number already exists for this facility")
		return
	} else if err != mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	floor := models.Floor{
		FloorID:    "fl" + utils.GenerateRandomString(12),
		FacilityID: facilityID,
		Name:       req.Name,
		Number:     req.Number,
		CreatedAt:  time.Now(),
	}

	if _, err := db.FloorsCollection.InsertOne(ctx, floor); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating floor")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, floor)
}

// GetFloor returns one floor. Security users can only see floors in
// their assigned facility.
func GetFloor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()

	var floor models.Floor
	err := db.FloorsCollection.FindOne(ctx, bson.M{"floorid": ps.ByName("floorid")}).Decode(&floor)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Floor not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching floor")
		return
	}

	if hasRole(ctx, "security") {
		assigned, err := assignedFacility(ctx)
		if err != nil || assigned != floor.FacilityID {
			utils.RespondWithError(w, http.StatusForbidden, "Floor not in assigned facility")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, floor)
}

// GetFloors lists floors, scoped to the assigned facility for security
// users, optionally filtered by ?facilityid= for everyone else.
func GetFloors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	cursor, err := db.FloorsCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching floors")
		return
	}
	defer cursor.Close(ctx)

	var floors []models.Floor
	if err := cursor.All(ctx, &floors); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding floors")
		return
	}
	if floors == nil {
		floors = []models.Floor{}
	}

	utils.RespondWithJSON(w, http.StatusOK, floors)
}

type floorSummary struct {
	models.Floor
	TotalSlots     int `json:"totalSlots"`
	OccupiedSlots  int `json:"occupiedSlots"`
	AvailableSlots int `json:"availableSlots"`
}

// GetFloorSummary reports per-floor slot counts with live occupancy
// derived from the reservation ledger.
func GetFloorSummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	filter := bson.M{}
	if fid := r.URL.Query().Get("facilityid"); fid != "" {
		filter["facilityid"] = fid
	}

	cursor, err := db.FloorsCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching floors")
		return
	}
	defer cursor.Close(ctx)

	var floors []models.Floor
	if err := cursor.All(ctx, &floors); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding floors")
		return
	}

	now := time.Now()
	summaries := make([]floorSummary, 0, len(floors))
	for _, floor := range floors {
		slotCursor, err := db.SlotsCollection.Find(ctx, bson.M{"floorid": floor.FloorID})
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching slots")
			return
		}
		var slots []models.Slot
		if err := slotCursor.All(ctx, &slots); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding slots")
			return
		}

		slotIDs := make([]string, 0, len(slots))
		for _, s := range slots {
			slotIDs = append(slotIDs, s.SlotID)
		}

		occupied := 0
		if len(slotIDs) > 0 {
			n, err := db.BookingsCollection.CountDocuments(ctx, bson.M{
				"slotid":    bson.M{"$in": slotIDs},
				"status":    bson.M{"$in": []string{string(models.BookingReserved), string(models.BookingActive)}},
				"startTime": bson.M{"$lte": now},
				"endTime":   bson.M{"$gt": now},
			})
			if err != nil {
				utils.RespondWithError(w, http.StatusInternalServerError, "Error counting occupancy")
				return
			}
			occupied = int(n)
		}

		summaries = append(summaries, floorSummary{
			Floor:          floor,
			TotalSlots:     len(slots),
			OccupiedSlots:  occupied,
			AvailableSlots: len(slots) - occupied,
		})
	}

	utils.RespondWithJSON(w, http.StatusOK, summaries)
}

// UpdateFloor changes a floor's name or number.
func UpdateFloor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	floorID := ps.ByName("floorid")

	var req struct {
		Name   *string `json:"name"`
		Number *int    `json:"number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Number != nil {
		set["number"] = *req.Number
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	res, err := db.FloorsCollection.UpdateOne(ctx, bson.M{"floorid": floorID}, bson.M{"$set": set})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating floor")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Floor not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Floor updated"})
}

// DeleteFloor removes a floor once it has no slots left.
func DeleteFloor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	floorID := ps.ByName("floorid")

	count, err := db.SlotsCollection.CountDocuments(ctx, bson.M{"floorid": floorID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error checking slots")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Floor still has slots")
		return
	}

	res, err := db.FloorsCollection.DeleteOne(ctx, bson.M{"floorid": floorID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting floor")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Floor not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Floor deleted"})
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
