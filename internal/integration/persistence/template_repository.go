package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

// templateRepository implements the adapter.TemplateRepository interface.
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository instance.
func NewTemplateRepository(db *gorm.DB) adapter.TemplateRepository {
	return &templateRepository{db: db}
}

// FindActive retrieves the active template for (owner, type, language).
func (r *templateRepository) FindActive(ctx context.Context, ownerID uuid.UUID, templateType, language string) (*entity.ReminderTemplate, error) {
	var templateModel model.ReminderTemplateModel
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("type = ?", templateType).
		Where("language = ?", language).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&templateModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return templateModel.ToEntity(), nil
}

// FindActiveAnyLanguage retrieves any active template for (owner, type).
func (r *templateRepository) FindActiveAnyLanguage(ctx context.Context, ownerID uuid.UUID, templateType string) (*entity.ReminderTemplate, error) {
	var templateModel model.ReminderTemplateModel
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("type = ?", templateType).
		Where("is_active = ?", true).
		Order("language ASC, updated_at DESC").
		First(&templateModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return templateModel.ToEntity(), nil
}
