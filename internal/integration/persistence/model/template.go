package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// ReminderTemplateModel represents the reminder_templates table.
type ReminderTemplateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(100);not null;index"`
	Language  string    `gorm:"type:varchar(10);not null"`
	Subject   string    `gorm:"type:varchar(500);not null"`
	HTMLBody  string    `gorm:"type:text"`
	TextBody  string    `gorm:"type:text"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the ReminderTemplateModel.
func (ReminderTemplateModel) TableName() string {
	return "reminder_templates"
}

// ToEntity converts a ReminderTemplateModel to a domain entity.
func (m *ReminderTemplateModel) ToEntity() *entity.ReminderTemplate {
	return &entity.ReminderTemplate{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Type:      m.Type,
		Language:  m.Language,
		Subject:   m.Subject,
		HTMLBody:  m.HTMLBody,
		TextBody:  m.TextBody,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
