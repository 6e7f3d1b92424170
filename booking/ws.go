package booking

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"parkwise/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	subMu       sync.Mutex
)

// HandleAvailabilityWS subscribes a client to live free-slot updates
// for one facility.
func HandleAvailabilityWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	facilityID := ps.ByName("facilityid")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		log.Printf("websocket upgrade for %s failed: %v", facilityID, err)
		return
	}

	subMu.Lock()
	subscribers[facilityID] = append(subscribers[facilityID], conn)
	subMu.Unlock()

	// Push the current count immediately on subscribe.
	BroadcastAvailability(facilityID)

	for {
		// This keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Clean up on disconnect
	subMu.Lock()
	conns := subscribers[facilityID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[facilityID] = newList
	subMu.Unlock()

	conn.Close()
}

type availabilityMsg struct {
	Type           string `json:"type"`
	FacilityID     string `json:"facilityid"`
	AvailableSlots int    `json:"availableSlots"`
}

// BroadcastAvailability recounts free slots and pushes the result to
// every subscriber of the facility. Safe to call from handlers; runs
// async so ledger writes never wait on slow clients.
func BroadcastAvailability(facilityID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		free, err := facilityFreeSlots(ctx, facilityID, time.Now().UTC())
		if err != nil {
			return
		}

		data, _ := json.Marshal(availabilityMsg{
			Type:           "availability",
			FacilityID:     facilityID,
			AvailableSlots: free,
		})
		broadcast(facilityID, data)
	}()
}

func broadcast(key string, val []byte) {
	subMu.Lock()
	defer subMu.Unlock()

	conns := subscribers[key]
	newList := conns[:0]

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, val); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}

	subscribers[key] = newList
}

// HandleEvent lets the redis event worker fan ledger changes from other
// instances into this one's websocket subscribers.
func HandleEvent(ev mq.Event) {
	if ev.FacilityID == "" {
		return
	}
	BroadcastAvailability(ev.FacilityID)
}
