package utils

import (
	rndm "math/rand"
	"net/http"
	"strings"

	"parkwise/globals"
)

// --- Random String and ID Generators ---

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789_ABCDEFGHIJKLMNOPQRSTUVWXYZ")
var ticketRunes = []rune("0123456789ABCDEF")

// GenerateRandomString creates a random alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

// GenerateTicketCode returns a short ticket code like TKT-A1B2C3,
// handed to the driver for check-in correlation.
func GenerateTicketCode() string {
	b := make([]rune, 6)
	for i := range b {
		b[i] = ticketRunes[rndm.Intn(len(ticketRunes))]
	}
	return "TKT-" + string(b)
}

// --- Request Helpers ---

// GetUserIDFromRequest reads the user ID placed in context by the auth middleware.
func GetUserIDFromRequest(r *http.Request) string {
	if v, ok := r.Context().Value(globals.UserIDKey).(string); ok {
		return v
	}
	return ""
}

// --- Slice Helpers ---

func Contains(slice []string, value string) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}

// NormalizeVehicleType lower-cases and trims a vehicle type for matching.
func NormalizeVehicleType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
