package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event (created, updated, recorded)
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeRecorded EventType = "recorded"
	EventTypeAdjusted EventType = "adjusted"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLedger  EntityType = "ledger"
	EntityTypePayment EntityType = "payment"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.recorded"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "payment"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerCreated creates a ledger.created event
func LedgerCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLedger, payload)
}

// LedgerUpdated creates a ledger.updated event
func LedgerUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLedger, payload)
}

// PaymentRecorded creates a payment.recorded event
func PaymentRecorded(payload interface{}) Event {
	return NewEvent(EventTypeRecorded, EntityTypePayment, payload)
}

// PaymentAdjusted creates a payment.adjusted event
func PaymentAdjusted(payload interface{}) Event {
	return NewEvent(EventTypeAdjusted, EntityTypePayment, payload)
}
