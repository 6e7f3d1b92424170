package tickets

import (
	"encoding/json"
	"net/http"

	"parkwise/db"
	"parkwise/models"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ScanTicket verifies a scanned QR payload at the gate and returns the
// booking it belongs to so the guard can proceed with check-in.
func ScanTicket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	facilityID, ticketID, err := VerifyTicketQR(req.Payload)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var bkg models.Booking
	err = db.BookingsCollection.FindOne(r.Context(), bson.M{
		"ticketId":   ticketID,
		"facilityid": facilityID,
	}).Decode(&bkg)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Ticket not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching booking")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"booking": bkg,
	})
}
