// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpStatus represents the status of a follow-up item in its lifecycle.
type FollowUpStatus string

const (
	FollowUpStatusPending          FollowUpStatus = "pending"
	FollowUpStatusScheduled        FollowUpStatus = "scheduled"
	FollowUpStatusReadyForDispatch FollowUpStatus = "ready_for_dispatch"
	FollowUpStatusSending          FollowUpStatus = "sending"
	FollowUpStatusSent             FollowUpStatus = "sent"
	FollowUpStatusFailed           FollowUpStatus = "failed"
	FollowUpStatusStopped          FollowUpStatus = "stopped"
)

// DueStatuses are the statuses a dispatch run considers for sending.
func DueStatuses() []FollowUpStatus {
	return []FollowUpStatus{
		FollowUpStatusPending,
		FollowUpStatusScheduled,
		FollowUpStatusReadyForDispatch,
	}
}

// IsTerminal reports whether the status ends the item's lifecycle.
func (s FollowUpStatus) IsTerminal() bool {
	return s == FollowUpStatusSent || s == FollowUpStatusFailed || s == FollowUpStatusStopped
}

// ParentKind identifies the kind of entity a follow-up is about.
type ParentKind string

const (
	ParentKindInvoice ParentKind = "invoice"
	ParentKindQuote   ParentKind = "quote"
)

// Priority orders follow-up items within a dispatch run.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority, highest first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// FollowUpMeta carries the typed per-item dispatch attributes. Invoice and
// quote follow-ups share the same shape; TemplateType disambiguates the
// reminder flavor (e.g. invoice_overdue, quote_no_reply).
type FollowUpMeta struct {
	Priority     Priority
	Automated    bool
	TemplateType string
}

// FollowUpItem is a scheduled reminder for one parent entity (an invoice or
// a quote). It is created by the stage scheduler and mutated exclusively by
// the dispatch engine.
type FollowUpItem struct {
	ID          uuid.UUID
	ParentID    uuid.UUID
	ParentKind  ParentKind
	OwnerID     uuid.UUID
	ClientID    uuid.UUID
	Stage       int
	Status      FollowUpStatus
	ScheduledAt time.Time
	Attempts    int
	MaxAttempts int
	LastError   string
	TemplateKey string
	Meta        FollowUpMeta

	// Content frozen at creation time, used as the last resort of the
	// template fallback chain when no stored template resolves.
	FallbackSubject string
	FallbackHTML    string
	FallbackText    string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// NewFollowUpItem creates a follow-up item in pending state for the given
// parent, due at scheduledAt.
func NewFollowUpItem(parentID uuid.UUID, kind ParentKind, ownerID, clientID uuid.UUID, stage int, templateKey string, meta FollowUpMeta, scheduledAt time.Time) *FollowUpItem {
	now := time.Now().UTC()
	return &FollowUpItem{
		ID:          uuid.New(),
		ParentID:    parentID,
		ParentKind:  kind,
		OwnerID:     ownerID,
		ClientID:    clientID,
		Stage:       stage,
		Status:      FollowUpStatusPending,
		ScheduledAt: scheduledAt,
		Attempts:    0,
		MaxAttempts: 3,
		TemplateKey: templateKey,
		Meta:        meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkSent records a successful transport attempt. Attempts counts send
// attempts for the current stage; while attempts remain the same stage is
// rescheduled after resendDelay, otherwise the stage is exhausted and the
// item ends in sent state.
func (f *FollowUpItem) MarkSent(now time.Time, resendDelay time.Duration) {
	f.Attempts++
	f.LastError = ""
	if f.Attempts < f.MaxAttempts {
		f.Status = FollowUpStatusScheduled
		f.ScheduledAt = now.Add(resendDelay)
	} else {
		f.Status = FollowUpStatusSent
		processed := now
		f.ProcessedAt = &processed
	}
	f.UpdatedAt = now
}

// MarkFailed records a failed attempt. Both permanent and transient failures
// land in failed state; an external rescheduling policy may move transient
// failures back to scheduled while attempts remain.
func (f *FollowUpItem) MarkFailed(now time.Time, err error) {
	f.Attempts++
	if err != nil {
		f.LastError = err.Error()
	}
	f.Status = FollowUpStatusFailed
	processed := now
	f.ProcessedAt = &processed
	f.UpdatedAt = now
}

// MarkStopped ends the item because the parent reached a terminal business
// state or the owner is not entitled to automated sends.
func (f *FollowUpItem) MarkStopped(now time.Time, reason string) {
	f.Status = FollowUpStatusStopped
	f.LastError = reason
	processed := now
	f.ProcessedAt = &processed
	f.UpdatedAt = now
}

// CanRetry returns true while send attempts remain for this stage.
func (f *FollowUpItem) CanRetry() bool {
	return f.Attempts < f.MaxAttempts
}

// IsDue reports whether the item is in a due status with its schedule elapsed.
func (f *FollowUpItem) IsDue(now time.Time) bool {
	for _, s := range DueStatuses() {
		if f.Status == s {
			return !f.ScheduledAt.After(now)
		}
	}
	return false
}
