package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

// Lifecycle events published by the realtime server
const (
	EventConnectionOpened EventType = "connection.opened"
	EventConnectionClosed EventType = "connection.closed"
	EventRoomJoined       EventType = "room.joined"
	EventRoomLeft         EventType = "room.left"
)

// Event represents a realtime lifecycle event
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Data      map[string]string `json:"data,omitempty"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, source string, data map[string]string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}
