package model

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// EventModel represents the append-only events table in the database.
type EventModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ParentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Meta      string    `gorm:"type:jsonb;not null;default:'{}'"`
	Timestamp time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the EventModel.
func (EventModel) TableName() string {
	return "events"
}

// ToEntity converts an EventModel to a domain Event entity.
func (m *EventModel) ToEntity() *entity.Event {
	var meta map[string]interface{}
	if m.Meta != "" {
		if err := json.Unmarshal([]byte(m.Meta), &meta); err != nil {
			slog.Warn("Failed to unmarshal event meta", "error", err, "id", m.ID)
		}
	}
	if meta == nil {
		meta = make(map[string]interface{})
	}

	return &entity.Event{
		ID:        m.ID,
		ParentID:  m.ParentID,
		OwnerID:   m.OwnerID,
		Type:      entity.EventType(m.Type),
		Meta:      meta,
		Timestamp: m.Timestamp,
	}
}

// EventModelFromEntity creates an EventModel from a domain entity.
func EventModelFromEntity(event *entity.Event) *EventModel {
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		slog.Error("Failed to marshal event meta", "error", err, "event_id", event.ID)
		metaJSON = []byte("{}")
	}

	return &EventModel{
		ID:        event.ID,
		ParentID:  event.ParentID,
		OwnerID:   event.OwnerID,
		Type:      string(event.Type),
		Meta:      string(metaJSON),
		Timestamp: event.Timestamp,
	}
}
