package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

// outboxRepository implements the adapter.OutboxRepository interface.
type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new outbox repository instance.
func NewOutboxRepository(db *gorm.DB) adapter.OutboxRepository {
	return &outboxRepository{db: db}
}

// Create inserts a record in sending state.
func (r *outboxRepository) Create(ctx context.Context, record *entity.OutboxRecord) error {
	outboxModel := model.OutboxModelFromEntity(record)
	return r.db.WithContext(ctx).Create(outboxModel).Error
}

// Update saves the post-transport status transition.
func (r *outboxRepository) Update(ctx context.Context, record *entity.OutboxRecord) error {
	outboxModel := model.OutboxModelFromEntity(record)
	return r.db.WithContext(ctx).Save(outboxModel).Error
}

// GetByFollowUp retrieves all records for a follow-up item, newest first.
func (r *outboxRepository) GetByFollowUp(ctx context.Context, followUpID uuid.UUID) ([]*entity.OutboxRecord, error) {
	var models []model.OutboxModel
	result := r.db.WithContext(ctx).
		Where("follow_up_id = ?", followUpID).
		Order("created_at DESC").
		Find(&models)

	if result.Error != nil {
		return nil, result.Error
	}

	records := make([]*entity.OutboxRecord, len(models))
	for i, m := range models {
		records[i] = m.ToEntity()
	}
	return records, nil
}

// eventRepository implements the adapter.EventRepository interface.
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance.
func NewEventRepository(db *gorm.DB) adapter.EventRepository {
	return &eventRepository{db: db}
}

// Append inserts a lifecycle event. Events are never updated or deleted.
func (r *eventRepository) Append(ctx context.Context, event *entity.Event) error {
	eventModel := model.EventModelFromEntity(event)
	return r.db.WithContext(ctx).Create(eventModel).Error
}
