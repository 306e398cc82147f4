package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// OutboxRepository persists the audit trail of transport attempts. The
// insert happens before the transport call; the update after, never both in
// one step.
type OutboxRepository interface {
	// Create inserts a record in sending state.
	Create(ctx context.Context, record *entity.OutboxRecord) error

	// Update saves the post-transport status transition.
	Update(ctx context.Context, record *entity.OutboxRecord) error

	// GetByFollowUp retrieves all records for a follow-up item, newest first.
	GetByFollowUp(ctx context.Context, followUpID uuid.UUID) ([]*entity.OutboxRecord, error)
}

// EventRepository appends lifecycle events. Append failures must never roll
// back a completed send; callers log and continue.
type EventRepository interface {
	// Append inserts an event.
	Append(ctx context.Context, event *entity.Event) error
}
