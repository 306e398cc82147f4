package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies follow-up lifecycle events.
type EventType string

const (
	EventFollowUpSent   EventType = "followup_sent"
	EventFollowUpFailed EventType = "followup_failed"
)

// Event is an append-only lifecycle record per parent entity, consumed by
// observability and downstream analytics. Events are never mutated.
type Event struct {
	ID        uuid.UUID
	ParentID  uuid.UUID
	OwnerID   uuid.UUID
	Type      EventType
	Meta      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a lifecycle event for the given parent.
func NewEvent(parentID, ownerID uuid.UUID, eventType EventType, meta map[string]interface{}, now time.Time) *Event {
	if meta == nil {
		meta = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.New(),
		ParentID:  parentID,
		OwnerID:   ownerID,
		Type:      eventType,
		Meta:      meta,
		Timestamp: now,
	}
}
