package utils

import (
	"strings"
	"testing"
)

func TestGenerateTicketCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := GenerateTicketCode()
		if len(code) != 10 || !strings.HasPrefix(code, "TKT-") {
			t.Fatalf("unexpected ticket code %q", code)
		}
		for _, c := range code[4:] {
			if !strings.ContainsRune("0123456789ABCDEF", c) {
				t.Fatalf("unexpected character %q in %q", c, code)
			}
		}
		seen[code] = true
	}
	// 16^6 possibilities; 200 draws colliding down to a handful would
	// mean the generator is broken.
	if len(seen) < 190 {
		t.Errorf("too many collisions: %d unique of 200", len(seen))
	}
}

func TestGenerateRandomStringLength(t *testing.T) {
	for _, n := range []int{1, 10, 14} {
		if got := GenerateRandomString(n); len(got) != n {
			t.Errorf("length %d: got %q", n, got)
		}
	}
}

func TestNormalizeVehicleType(t *testing.T) {
	cases := map[string]string{
		"Car":    "car",
		" BIKE ": "bike",
		"car":    "car",
		"":       "",
	}
	for in, want := range cases {
		if got := NormalizeVehicleType(in); got != want {
			t.Errorf("NormalizeVehicleType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContains(t *testing.T) {
	roles := []string{"user", "security"}
	if !Contains(roles, "security") {
		t.Error("expected security to be present")
	}
	if Contains(roles, "admin") {
		t.Error("admin should be absent")
	}
	if Contains(nil, "user") {
		t.Error("nil slice contains nothing")
	}
}
