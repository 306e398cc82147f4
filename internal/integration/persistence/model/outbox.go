package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/facturio/backend/internal/domain/entity"
)

// OutboxModel represents the outbox_records table in the database.
type OutboxModel struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	FollowUpID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	ToAddress         string         `gorm:"type:varchar(255)"`
	Subject           string         `gorm:"type:varchar(500)"`
	HTML              string         `gorm:"type:text"`
	Text              string         `gorm:"type:text"`
	AttachmentNames   pq.StringArray `gorm:"type:text[]"`
	Status            string         `gorm:"type:varchar(20);not null;default:'sending'"`
	ProviderMessageID string         `gorm:"type:varchar(100)"`
	Error             string         `gorm:"type:text"`
	CreatedAt         time.Time      `gorm:"not null"`
	SentAt            sql.NullTime   `gorm:"type:timestamptz"`
}

// TableName returns the table name for the OutboxModel.
func (OutboxModel) TableName() string {
	return "outbox_records"
}

// ToEntity converts an OutboxModel to a domain OutboxRecord entity.
func (m *OutboxModel) ToEntity() *entity.OutboxRecord {
	var sentAt *time.Time
	if m.SentAt.Valid {
		sentAt = &m.SentAt.Time
	}

	return &entity.OutboxRecord{
		ID:                m.ID,
		FollowUpID:        m.FollowUpID,
		ToAddress:         m.ToAddress,
		Subject:           m.Subject,
		HTML:              m.HTML,
		Text:              m.Text,
		AttachmentNames:   []string(m.AttachmentNames),
		Status:            entity.OutboxStatus(m.Status),
		ProviderMessageID: m.ProviderMessageID,
		Error:             m.Error,
		CreatedAt:         m.CreatedAt,
		SentAt:            sentAt,
	}
}

// OutboxModelFromEntity creates an OutboxModel from a domain entity.
func OutboxModelFromEntity(record *entity.OutboxRecord) *OutboxModel {
	var sentAt sql.NullTime
	if record.SentAt != nil {
		sentAt = sql.NullTime{Time: *record.SentAt, Valid: true}
	}

	return &OutboxModel{
		ID:                record.ID,
		FollowUpID:        record.FollowUpID,
		ToAddress:         record.ToAddress,
		Subject:           record.Subject,
		HTML:              record.HTML,
		Text:              record.Text,
		AttachmentNames:   pq.StringArray(record.AttachmentNames),
		Status:            string(record.Status),
		ProviderMessageID: record.ProviderMessageID,
		Error:             record.Error,
		CreatedAt:         record.CreatedAt,
		SentAt:            sentAt,
	}
}
