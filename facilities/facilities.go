package facilities

import (
	"context"
	"encoding/json"
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

type createFacilityRequest struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Pricing   models.Pricing `json:"pricing"`
	UpiID     string         `json:"upiId"`
	Amenities []string       `json:"amenities"`
}

// CreateFacility registers a new parking facility owned by the caller.
func CreateFacility(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	userID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user")
		return
	}

	var req createFacilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.Name == "" || req.Address == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name and address are required")
		return
	}

	facility := models.Facility{
		FacilityID: "f" + utils.GenerateRandomString(12),
		Name:       req.Name,
		Address:    req.Address,
		Location: models.Coordinates{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		},
		OwnerID:   userID,
		Pricing:   req.Pricing,
		Status:    "active",
		UpiID:     req.UpiID,
		Amenities: req.Amenities,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if _, err := db.FacilitiesCollection.InsertOne(ctx, facility); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating facility")
		return
	}

	go mq.Emit(globals.Ctx, "facility-created", facility.FacilityID, facility.FacilityID)
	utils.RespondWithJSON(w, http.StatusCreated, facility)
}

// GetFacilities lists active facilities. Public endpoint; security
// assignments are not exposed.
func GetFacilities(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	cursor, err := db.FacilitiesCollection.Find(ctx, bson.M{"status": "active"})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching facilities")
		return
	}
	defer cursor.Close(ctx)

	var facilities []models.Facility
	if err := cursor.All(ctx, &facilities); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding facilities")
		return
	}
	for i := range facilities {
		facilities[i].SecurityUsers = nil
	}
	if facilities == nil {
		facilities = []models.Facility{}
	}

	utils.RespondWithJSON(w, http.StatusOK, facilities)
}

// GetFacility returns a single facility with its live free-slot count.
func GetFacility(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if !isOwnerOrAdmin(ctx, facility) {
		facility.SecurityUsers = nil
	}

	free, err := booking.FacilityFreeSlots(ctx, facilityID, time.Now())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching availability")
		return
	}
	facility.AvailableSlots = free
	facility.OperationalStatus = operationalStatus(facility, free)

	utils.RespondWithJSON(w, http.StatusOK, facility)
}

// UpdateFacility lets the owner or an admin change pricing and status.
func UpdateFacility(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if !isOwnerOrAdmin(ctx, facility) {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req struct {
		Name              *string         `json:"name"`
		Address           *string         `json:"address"`
		Pricing           *models.Pricing `json:"pricing"`
		Status            *string         `json:"status"`
		TemporarilyClosed *bool           `json:"temporarilyClosed"`
		UpiID             *string         `json:"upiId"`
		Amenities         *[]string       `json:"amenities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Address != nil {
		set["address"] = *req.Address
	}
	if req.Pricing != nil {
		set["pricing"] = *req.Pricing
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.TemporarilyClosed != nil {
		set["temporarilyClosed"] = *req.TemporarilyClosed
	}
	if req.UpiID != nil {
		set["upiId"] = *req.UpiID
	}
	if req.Amenities != nil {
		set["amenities"] = *req.Amenities
	}

	var updated models.Facility
	err = db.FacilitiesCollection.FindOneAndUpdate(ctx,
		bson.M{"facilityid": facilityID},
		bson.M{"$set": set},
		mongoReturnAfter(),
	).Decode(&updated)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating facility")
		return
	}

	rdx.InvalidateAvailability(facilityID)
	go mq.Emit(globals.Ctx, "facility-updated", facilityID, facilityID)
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DeleteFacility removes a facility. Admin only, and only while no
// reservations reference it.
func DeleteFacility(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	facilityID := ps.ByName("facilityid")

	if !hasRole(ctx, "admin") {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	count, err := db.BookingsCollection.CountDocuments(ctx, bson.M{
		"facilityid": facilityID,
		"status":     bson.M{"$in": []string{string(models.BookingReserved), string(models.BookingActive)}},
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error checking reservations")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "Facility has live reservations")
		return
	}

	res, err := db.FacilitiesCollection.DeleteOne(ctx, bson.M{"facilityid": facilityID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting facility")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Facility not found")
		return
	}

	rdx.InvalidateAvailability(facilityID)
	go mq.Emit(globals.Ctx, "facility-deleted", facilityID, facilityID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Facility deleted"})
}

// AssignSecurity links a security user to a facility. Admin only. A
// facility holds at most one security user and a security user guards
// at most one facility.
func AssignSecurity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	if !hasRole(ctx, "admin") {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req struct {
		FacilityID string `json:"facilityid"`
		SecurityID string `json:"securityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var facility models.Facility
	if err := db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": req.FacilityID}).Decode(&facility); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Facility not found")
		return
	}

	var security models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": req.SecurityID}).Decode(&security)
	if err != nil || !security.HasRole("security") {
		utils.RespondWithError(w, http.StatusNotFound, "Security user not found")
		return
	}

	if len(facility.SecurityUsers) > 0 && !utils.Contains(facility.SecurityUsers, req.SecurityID) {
		utils.RespondWithError(w, http.StatusBadRequest, "Facility already has a security assigned")
		return
	}
	if security.AssignedFacility != "" && security.AssignedFacility != req.FacilityID {
		utils.RespondWithError(w, http.StatusBadRequest, "Security is already assigned to another facility")
		return
	}

	_, err = db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": req.SecurityID},
		bson.M{"$set": bson.M{"assignedFacility": req.FacilityID, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error assigning security")
		return
	}

	_, err = db.FacilitiesCollection.UpdateOne(ctx,
		bson.M{"facilityid": req.FacilityID},
		bson.M{"$addToSet": bson.M{"securityUsers": req.SecurityID}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error assigning security")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Security assigned successfully"})
}

func isOwnerOrAdmin(ctx context.Context, facility models.Facility) bool {
	userID, _ := ctx.Value(globals.UserIDKey).(string)
	if userID == facility.OwnerID {
		return true
	}
	return hasRole(ctx, "admin")
}

func hasRole(ctx context.Context, role string) bool {
	roles, _ := ctx.Value(globals.RoleKey).([]string)
	return utils.Contains(roles, role)
}
