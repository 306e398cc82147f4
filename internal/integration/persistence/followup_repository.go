// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	domainerror "github.com/facturio/backend/internal/domain/error"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

// priorityOrder sorts high before medium before low; ties break on the
// oldest schedule.
const priorityOrder = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, scheduled_at ASC"

// followUpRepository implements the adapter.FollowUpRepository interface.
type followUpRepository struct {
	db *gorm.DB
}

// NewFollowUpRepository creates a new follow-up repository instance.
func NewFollowUpRepository(db *gorm.DB) adapter.FollowUpRepository {
	return &followUpRepository{db: db}
}

// GetDueItems retrieves items ready for dispatch in priority order.
func (r *followUpRepository) GetDueItems(ctx context.Context, now time.Time, limit int) ([]*entity.FollowUpItem, error) {
	var models []model.FollowUpModel

	result := r.db.WithContext(ctx).
		Where("status IN ?", dueStatusStrings()).
		Where("scheduled_at <= ?", now).
		Order(priorityOrder).
		Limit(limit).
		Find(&models)

	if result.Error != nil {
		return nil, result.Error
	}

	items := make([]*entity.FollowUpItem, len(models))
	for i, m := range models {
		items[i] = m.ToEntity()
	}
	return items, nil
}

// ClaimForSending transitions the item to sending only if it is still due.
func (r *followUpRepository) ClaimForSending(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&model.FollowUpModel{}).
		Where("id = ?", id).
		Where("status IN ?", dueStatusStrings()).
		Updates(map[string]interface{}{
			"status":     string(entity.FollowUpStatusSending),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrItemNotClaimed
	}
	return nil
}

// Update saves changes to a follow-up item.
func (r *followUpRepository) Update(ctx context.Context, item *entity.FollowUpItem) error {
	followUpModel := model.FollowUpModelFromEntity(item)
	result := r.db.WithContext(ctx).Save(followUpModel)
	return result.Error
}

// StopAllForParent stops every non-terminal item of the parent in one statement.
func (r *followUpRepository) StopAllForParent(ctx context.Context, parentID uuid.UUID, reason string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.FollowUpModel{}).
		Where("parent_id = ?", parentID).
		Where("status NOT IN ?", terminalStatusStrings()).
		Updates(map[string]interface{}{
			"status":       string(entity.FollowUpStatusStopped),
			"last_error":   reason,
			"processed_at": now,
			"updated_at":   now,
		})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetByID retrieves a specific item by its ID.
func (r *followUpRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.FollowUpItem, error) {
	var followUpModel model.FollowUpModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&followUpModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrFollowUpNotFound
		}
		return nil, result.Error
	}
	return followUpModel.ToEntity(), nil
}

func dueStatusStrings() []string {
	due := entity.DueStatuses()
	out := make([]string, len(due))
	for i, s := range due {
		out[i] = string(s)
	}
	return out
}

func terminalStatusStrings() []string {
	return []string{
		string(entity.FollowUpStatusSent),
		string(entity.FollowUpStatusFailed),
		string(entity.FollowUpStatusStopped),
	}
}
