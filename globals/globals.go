package globals

import (
	"context"
	"os"
)

var (
	JwtSecret    = []byte(getenv("JWT_SECRET", "your_secret_key"))
	TicketSecret = []byte(getenv("TICKET_SECRET", "parkwise-ticket-key"))
)

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

var Ctx = context.Background()

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
