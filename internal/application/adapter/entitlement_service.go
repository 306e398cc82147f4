package adapter

import (
	"context"

	"github.com/google/uuid"
)

// EntitlementService answers whether an owner's plan allows automatic
// sending. Manual follow-ups never consult this gate.
type EntitlementService interface {
	// AllowsAutomatedSends returns true when the owner's plan and
	// subscription status entitle them to automated follow-ups.
	AllowsAutomatedSends(ctx context.Context, ownerID uuid.UUID) (bool, error)
}
