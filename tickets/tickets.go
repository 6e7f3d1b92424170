package tickets

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"parkwise/db"
	"parkwise/middleware"
	"parkwise/models"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TicketQR serves the signed QR code for a booking's ticket as PNG.
// Only the booking owner can fetch it.
func TicketQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ticketID := ps.ByName("ticketid")

	claims, err := middleware.ValidateJWT(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bkg, err := ownedBooking(r, ticketID, claims.UserID)
	if err != nil {
		httpTicketError(w, err)
		return
	}

	qrPNG, err := qrcode.Encode(GenerateQRPayload(bkg.FacilityID, bkg.TicketID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(qrPNG); err != nil {
		log.Printf("write QR response: %v", err)
	}
}

// PrintTicket renders a booking's ticket as a downloadable PDF with the
// signed QR embedded.
func PrintTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ticketID := ps.ByName("ticketid")

	claims, err := middleware.ValidateJWT(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bkg, err := ownedBooking(r, ticketID, claims.UserID)
	if err != nil {
		httpTicketError(w, err)
		return
	}

	var facility models.Facility
	_ = db.FacilitiesCollection.FindOne(r.Context(), bson.M{"facilityid": bkg.FacilityID}).Decode(&facility)

	qrPNG, err := qrcode.Encode(GenerateQRPayload(bkg.FacilityID, bkg.TicketID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Parking Ticket")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Facility: %s", facility.Name))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Ticket: %s", bkg.TicketID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Holder: %s", claims.Username))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("From: %s", bkg.StartTime.Format(time.RFC1123)))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("To: %s", bkg.EndTime.Format(time.RFC1123)))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Amount: %.2f", bkg.TotalAmount))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=ticket-"+bkg.TicketID+".pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("write PDF response: %v", err)
	}
}

var errTicketNotFound = fmt.Errorf("ticket not found")
var errNotTicketOwner = fmt.Errorf("access denied")

func ownedBooking(r *http.Request, ticketID, userID string) (models.Booking, error) {
	var bkg models.Booking
	err := db.BookingsCollection.FindOne(r.Context(), bson.M{"ticketId": ticketID}).Decode(&bkg)
	if err == mongo.ErrNoDocuments {
		return models.Booking{}, errTicketNotFound
	} else if err != nil {
		return models.Booking{}, err
	}
	if bkg.UserID != userID {
		return models.Booking{}, errNotTicketOwner
	}
	return bkg, nil
}

func httpTicketError(w http.ResponseWriter, err error) {
	switch err {
	case errTicketNotFound:
		http.Error(w, "Ticket not found", http.StatusNotFound)
	case errNotTicketOwner:
		http.Error(w, "Access denied", http.StatusForbidden)
	default:
		http.Error(w, "Error fetching ticket", http.StatusInternalServerError)
	}
}
