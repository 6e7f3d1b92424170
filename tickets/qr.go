package tickets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parkwise/globals"
)

const allowedDrift = 5 * 60 // seconds

// GenerateQRPayload returns a signed payload string:
// facilityID|ticketID|timestamp|signature
func GenerateQRPayload(facilityID, ticketID string) string {
	return generateAt(facilityID, ticketID, time.Now())
}

func generateAt(facilityID, ticketID string, now time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", facilityID, ticketID, now.Unix())
	return fmt.Sprintf("%s|%s", data, sign(data))
}

// VerifyTicketQR checks the signature and timestamp window of a scanned
// payload and returns the identifiers it carries.
func VerifyTicketQR(payload string) (facilityID, ticketID string, err error) {
	return verifyAt(payload, time.Now())
}

func verifyAt(payload string, now time.Time) (facilityID, ticketID string, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return "", "", errors.New("invalid QR format")
	}

	facilityID = parts[0]
	ticketID = parts[1]
	timestampStr := parts[2]
	signature := parts[3]

	ts, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", "", errors.New("invalid timestamp")
	}

	if abs(now.Unix()-ts) > allowedDrift {
		return "", "", errors.New("ticket expired or from the future")
	}

	data := fmt.Sprintf("%s|%s|%s", facilityID, ticketID, timestampStr)
	if !hmac.Equal([]byte(signature), []byte(sign(data))) {
		return "", "", errors.New("invalid signature")
	}

	return facilityID, ticketID, nil
}

func sign(data string) string {
	h := hmac.New(sha256.New, globals.TicketSecret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
