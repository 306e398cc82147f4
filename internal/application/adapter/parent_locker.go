package adapter

import (
	"context"

	"github.com/google/uuid"
)

// ParentLocker serializes follow-up processing per parent entity across
// concurrent schedulers. At most one follow-up may be in flight per parent
// at any instant.
type ParentLocker interface {
	// TryAcquire attempts to take the per-parent lock without blocking.
	// When acquired is true the caller must invoke release when done.
	TryAcquire(ctx context.Context, parentID uuid.UUID) (release func(), acquired bool, err error)
}
