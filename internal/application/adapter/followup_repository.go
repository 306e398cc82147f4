// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// FollowUpRepository defines the interface for follow-up item persistence.
type FollowUpRepository interface {
	// GetDueItems retrieves items in a due status with scheduled_at <= now,
	// ordered by priority (high first) then scheduled_at, capped at limit.
	GetDueItems(ctx context.Context, now time.Time, limit int) ([]*entity.FollowUpItem, error)

	// ClaimForSending transitions the item to sending, but only if it is
	// still in one of the due statuses. Returns ErrItemNotClaimed when the
	// conditional update matches no row, which means another scheduler
	// already owns the item.
	ClaimForSending(ctx context.Context, id uuid.UUID) error

	// Update saves changes to a follow-up item.
	Update(ctx context.Context, item *entity.FollowUpItem) error

	// StopAllForParent transitions every non-terminal item of the parent to
	// stopped in a single statement and returns the number of items stopped.
	StopAllForParent(ctx context.Context, parentID uuid.UUID, reason string, now time.Time) (int64, error)

	// GetByID retrieves a specific item by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.FollowUpItem, error)
}
