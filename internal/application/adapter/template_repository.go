package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// TemplateRepository defines read access to stored reminder templates.
type TemplateRepository interface {
	// FindActive retrieves the active template for (owner, type, language),
	// or nil when none exists.
	FindActive(ctx context.Context, ownerID uuid.UUID, templateType, language string) (*entity.ReminderTemplate, error)

	// FindActiveAnyLanguage retrieves any active template for (owner, type)
	// regardless of language, or nil when none exists.
	FindActiveAnyLanguage(ctx context.Context, ownerID uuid.UUID, templateType string) (*entity.ReminderTemplate, error)
}
