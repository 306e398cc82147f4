// Package model defines database models for persistence layer.
package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// FollowUpModel represents the follow_ups table in the database.
type FollowUpModel struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey"`
	ParentID        uuid.UUID    `gorm:"type:uuid;not null;index"`
	ParentKind      string       `gorm:"type:varchar(20);not null"`
	OwnerID         uuid.UUID    `gorm:"type:uuid;not null;index"`
	ClientID        uuid.UUID    `gorm:"type:uuid;not null"`
	Stage           int          `gorm:"not null;default:1"`
	Status          string       `gorm:"type:varchar(30);not null;default:'pending';index"`
	ScheduledAt     time.Time    `gorm:"not null;index"`
	Attempts        int          `gorm:"not null;default:0"`
	MaxAttempts     int          `gorm:"not null;default:3"`
	LastError       string       `gorm:"type:text"`
	TemplateKey     string       `gorm:"type:varchar(100)"`
	Priority        string       `gorm:"type:varchar(10);not null;default:'medium'"`
	Automated       bool         `gorm:"not null;default:false"`
	TemplateType    string       `gorm:"type:varchar(100);not null"`
	FallbackSubject string       `gorm:"type:varchar(500)"`
	FallbackHTML    string       `gorm:"type:text"`
	FallbackText    string       `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null"`
	UpdatedAt       time.Time    `gorm:"not null"`
	ProcessedAt     sql.NullTime `gorm:"type:timestamptz"`
}

// TableName returns the table name for the FollowUpModel.
func (FollowUpModel) TableName() string {
	return "follow_ups"
}

// ToEntity converts a FollowUpModel to a domain FollowUpItem entity.
func (m *FollowUpModel) ToEntity() *entity.FollowUpItem {
	var processedAt *time.Time
	if m.ProcessedAt.Valid {
		processedAt = &m.ProcessedAt.Time
	}

	return &entity.FollowUpItem{
		ID:          m.ID,
		ParentID:    m.ParentID,
		ParentKind:  entity.ParentKind(m.ParentKind),
		OwnerID:     m.OwnerID,
		ClientID:    m.ClientID,
		Stage:       m.Stage,
		Status:      entity.FollowUpStatus(m.Status),
		ScheduledAt: m.ScheduledAt,
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		LastError:   m.LastError,
		TemplateKey: m.TemplateKey,
		Meta: entity.FollowUpMeta{
			Priority:     entity.Priority(m.Priority),
			Automated:    m.Automated,
			TemplateType: m.TemplateType,
		},
		FallbackSubject: m.FallbackSubject,
		FallbackHTML:    m.FallbackHTML,
		FallbackText:    m.FallbackText,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		ProcessedAt:     processedAt,
	}
}

// FollowUpModelFromEntity creates a FollowUpModel from a domain entity.
func FollowUpModelFromEntity(item *entity.FollowUpItem) *FollowUpModel {
	var processedAt sql.NullTime
	if item.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *item.ProcessedAt, Valid: true}
	}

	return &FollowUpModel{
		ID:              item.ID,
		ParentID:        item.ParentID,
		ParentKind:      string(item.ParentKind),
		OwnerID:         item.OwnerID,
		ClientID:        item.ClientID,
		Stage:           item.Stage,
		Status:          string(item.Status),
		ScheduledAt:     item.ScheduledAt,
		Attempts:        item.Attempts,
		MaxAttempts:     item.MaxAttempts,
		LastError:       item.LastError,
		TemplateKey:     item.TemplateKey,
		Priority:        string(item.Meta.Priority),
		Automated:       item.Meta.Automated,
		TemplateType:    item.Meta.TemplateType,
		FallbackSubject: item.FallbackSubject,
		FallbackHTML:    item.FallbackHTML,
		FallbackText:    item.FallbackText,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
		ProcessedAt:     processedAt,
	}
}
