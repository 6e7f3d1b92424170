package payments

import (
	"encoding/json"
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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addPaymentRequest struct {
	VehicleID     string  `json:"vehicleid"`
	SlotID        string  `json:"slotid"`
	Amount        float64 `json:"amount"`
	Duration      float64 `json:"duration"`
	PaymentMethod string  `json:"paymentMethod"`
}

// AddPayment records a manually collected payment against a vehicle.
func AddPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	userID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user")
		return
	}

	var req addPaymentRequest
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

	payment := models.PaymentRecord{
		PaymentID:     "pay" + utils.GenerateRandomString(12),
		UserID:        userID,
		VehicleID:     req.VehicleID,
		FacilityID:    vehicle.FacilityID,
		SlotID:        req.SlotID,
		Amount:        req.Amount,
		DurationHours: req.Duration,
		PaymentMethod: req.PaymentMethod,
		PaidAt:        time.Now(),
	}

	if _, err := db.PaymentsCollection.InsertOne(ctx, payment); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error recording payment")
		return
	}

	go mq.Emit(globals.Ctx, "payment-recorded", vehicle.FacilityID, payment.PaymentID)
	utils.RespondWithJSON(w, http.StatusCreated, payment)
}

// GetPayments lists the caller's payment history, newest first.
func GetPayments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	userID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user")
		return
	}

	cursor, err := db.PaymentsCollection.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching payments")
		return
	}
	defer cursor.Close(ctx)

	var payments []models.PaymentRecord
	if err := cursor.All(ctx, &payments); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding payments")
		return
	}
	if payments == nil {
		payments = []models.PaymentRecord{}
	}

	utils.RespondWithJSON(w, http.StatusOK, payments)
}

type preBookingPaymentRequest struct {
	BookingID     string `json:"bookingid"`
	PaymentMethod string `json:"paymentMethod"`
}

// ProcessPreBookingPayment settles the pre-booking fee for the caller's
// own reservation. Payment capture is simulated; a gateway integration
// would slot in here.
func ProcessPreBookingPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	userID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user")
		return
	}

	var req preBookingPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var bkg models.Booking
	err := db.BookingsCollection.FindOne(ctx, bson.M{"bookingid": req.BookingID}).Decode(&bkg)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Booking not found")
		return
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching booking")
		return
	}

	if bkg.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}
	if !bkg.IsPreBooked {
		utils.RespondWithError(w, http.StatusBadRequest, "Not a pre-booking")
		return
	}

	var facility models.Facility
	_ = db.FacilitiesCollection.FindOne(ctx, bson.M{"facilityid": bkg.FacilityID}).Decode(&facility)

	payment := models.PaymentRecord{
		PaymentID:     "pay" + utils.GenerateRandomString(12),
		UserID:        userID,
		FacilityID:    bkg.FacilityID,
		SlotID:        bkg.SlotID,
		BookingID:     bkg.BookingID,
		Amount:        bkg.PreBookingFee,
		PaymentMethod: req.PaymentMethod,
		Description:   "Pre-booking fee for " + facility.Name,
		PaidAt:        time.Now(),
	}

	if _, err := db.PaymentsCollection.InsertOne(ctx, payment); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error recording payment")
		return
	}

	_, err = db.BookingsCollection.UpdateOne(ctx,
		bson.M{"bookingid": bkg.BookingID},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentPaid, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating booking")
		return
	}

	go mq.Emit(globals.Ctx, "prebooking-paid", bkg.FacilityID, bkg.BookingID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Payment processed successfully",
		"payment": payment,
	})
}
