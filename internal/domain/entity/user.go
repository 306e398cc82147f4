package entity

import (
	"time"

	"github.com/google/uuid"
)

// PlanTier represents the subscription plan of an account owner.
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanStarter PlanTier = "starter"
	PlanPro     PlanTier = "pro"
)

// SubscriptionStatus represents the billing state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// User is the account owner of invoices, quotes and follow-ups. Only the
// display name and plan information are needed by the dispatch engine.
type User struct {
	ID                 uuid.UUID
	Email              string
	DisplayName        string
	CompanyName        string
	Plan               PlanTier
	SubscriptionStatus SubscriptionStatus
	CreatedAt          time.Time
}

// SenderName returns the name follow-up messages are signed with.
func (u *User) SenderName() string {
	if u.CompanyName != "" {
		return u.CompanyName
	}
	return u.DisplayName
}
