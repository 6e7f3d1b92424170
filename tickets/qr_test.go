package tickets

import (
	"strings"
	"testing"
	"time"
)

func TestQRPayloadRoundTrip(t *testing.T) {
	now := time.Now()
	payload := generateAt("f1", "TKT-ABC123", now)

	facilityID, ticketID, err := verifyAt(payload, now)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if facilityID != "f1" || ticketID != "TKT-ABC123" {
		t.Errorf("got %q %q", facilityID, ticketID)
	}
}

func TestQRPayloadTamperedSignature(t *testing.T) {
	now := time.Now()
	payload := generateAt("f1", "TKT-ABC123", now)

	tampered := strings.Replace(payload, "TKT-ABC123", "TKT-XYZ999", 1)
	if _, _, err := verifyAt(tampered, now); err == nil {
		t.Fatal("tampered payload must be rejected")
	}
}

func TestQRPayloadDrift(t *testing.T) {
	issued := time.Now()
	payload := generateAt("f1", "TKT-ABC123", issued)

	if _, _, err := verifyAt(payload, issued.Add(4*time.Minute)); err != nil {
		t.Fatalf("payload inside drift window must verify: %v", err)
	}
	if _, _, err := verifyAt(payload, issued.Add(6*time.Minute)); err == nil {
		t.Fatal("stale payload must be rejected")
	}
	if _, _, err := verifyAt(payload, issued.Add(-6*time.Minute)); err == nil {
		t.Fatal("payload from the future must be rejected")
	}
}

func TestQRPayloadFormat(t *testing.T) {
	for _, payload := range []string{
		"",
		"f1|TKT-ABC123",
		"f1|TKT-ABC123|notatimestamp|sig",
		"a|b|c|d|e",
	} {
		if _, _, err := verifyAt(payload, time.Now()); err == nil {
			t.Errorf("payload %q must be rejected", payload)
		}
	}
}
