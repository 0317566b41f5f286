package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypeImported EventType = "imported"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeStatement EntityType = "statement"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "statement.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "statement"
	Payload   interface{} `json:"payload"`   // Entity data or summary
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

// StatementCreated creates a statement.created event
func StatementCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeStatement, payload)
}

// StatementUpdated creates a statement.updated event
func StatementUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeStatement, payload)
}

// StatementDeleted creates a statement.deleted event
func StatementDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeStatement, payload)
}

// StatementsImported creates a statement.imported event
func StatementsImported(payload interface{}) Event {
	return NewEvent(EventTypeImported, EntityTypeStatement, payload)
}
