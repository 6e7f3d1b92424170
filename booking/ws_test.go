package booking

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestAvailabilityWSRejectsPlainHTTP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/facilities/p1/availability", nil)
	rec := httptest.NewRecorder()

	HandleAvailabilityWS(rec, req, httprouter.Params{{Key: "facilityid", Value: "p1"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-upgrade request must get 400, got %d", rec.Code)
	}
	// The upgrader writes its own error response; the handler must not
	// append a second body on top of it.
	if body := strings.TrimSpace(rec.Body.String()); body != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("handler wrote on top of the upgrader's response: %q", body)
	}
}
