package mq

import (
	"context"
	"encoding/json"
	"log"

	"parkwise/rdx"
)

const eventsChannel = "parking-events"

// Event represents a ledger change fanned out to live subscribers.
type Event struct {
	Name       string `json:"name"` // booking-created, booking-cancelled, vehicle-entered, vehicle-exited
	FacilityID string `json:"facilityid"`
	EntityID   string `json:"entity_id"`
}

// Emit publishes a ledger event to Redis. Failures are logged and
// swallowed: the ledger write already committed, live feeds are best effort.
func Emit(ctx context.Context, eventName, facilityID, entityID string) {
	data, err := json.Marshal(Event{Name: eventName, FacilityID: facilityID, EntityID: entityID})
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}

	if err := rdx.Conn.Publish(ctx, eventsChannel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish event to Redis: %v", err)
	}
}

// StartEventWorker subscribes to the event channel and hands each event
// to the given handler. Runs until the process exits.
func StartEventWorker(handler func(Event)) {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, eventsChannel)
	ch := sub.Channel()

	log.Println("[EventWorker] Listening for parking events...")

	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[EventWorker] Failed to parse event: %v", err)
			continue
		}
		handler(event)
	}
}
