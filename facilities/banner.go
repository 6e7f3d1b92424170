package facilities

import (
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/filemgr"
	"parkwise/models"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UploadBanner accepts a multipart banner image for a facility, stores
// the original plus a thumbnail, and records the file name.
func UploadBanner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Error parsing form data")
		return
	}

	file, header, err := r.FormFile("banner")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Banner upload failed")
		return
	}

	name, _, err := filemgr.SaveImageWithThumb(file, header, filemgr.EntityFacility, filemgr.PicBanner, 300, facilityID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = db.FacilitiesCollection.UpdateOne(ctx,
		bson.M{"facilityid": facilityID},
		bson.M{"$set": bson.M{"banner": name, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error saving banner")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"banner": name})
}
