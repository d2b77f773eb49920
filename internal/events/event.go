// Package events carries library change notifications between the document
// store and its subscribers, and keeps a persisted history of them.
package events

import "time"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	UserID() string   // owner of the library the event concerns
	EntityID() string // document id; empty for profile events
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	User      string    `json:"user_id"`
	ID        string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) UserID() string        { return e.User }
func (e BaseEvent) EntityID() string      { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, userID, entityID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		User:      userID,
		ID:        entityID,
		Timestamp: time.Now(),
	}
}
