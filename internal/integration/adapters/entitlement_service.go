// Package adapters implements adapter interfaces from the application layer.
package adapters

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
)

// entitlementService answers the automated-send gate from the owner's plan
// and subscription status. Manual follow-ups never reach this check.
type entitlementService struct {
	users adapter.UserRepository
}

// NewEntitlementService creates an entitlement service backed by the user
// repository.
func NewEntitlementService(users adapter.UserRepository) adapter.EntitlementService {
	return &entitlementService{users: users}
}

// AllowsAutomatedSends returns true for paid plans with a live subscription.
// Automated reminders are a paid capability; the free tier sends manually.
func (s *entitlementService) AllowsAutomatedSends(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return false, err
	}

	if owner.Plan == entity.PlanFree {
		return false, nil
	}

	switch owner.SubscriptionStatus {
	case entity.SubscriptionActive, entity.SubscriptionTrialing:
		return true, nil
	default:
		return false, nil
	}
}
