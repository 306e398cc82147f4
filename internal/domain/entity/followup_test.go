package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestItem() *FollowUpItem {
	return NewFollowUpItem(uuid.New(), ParentKindInvoice, uuid.New(), uuid.New(), 1, "invoice_overdue", FollowUpMeta{
		Priority:     PriorityMedium,
		TemplateType: "invoice_overdue",
	}, time.Now().UTC())
}

func TestNewFollowUpItemDefaults(t *testing.T) {
	item := newTestItem()
	if item.Status != FollowUpStatusPending {
		t.Errorf("status = %s, want pending", item.Status)
	}
	if item.Attempts != 0 || item.MaxAttempts != 3 {
		t.Errorf("attempts = %d/%d, want 0/3", item.Attempts, item.MaxAttempts)
	}
	if !item.CanRetry() {
		t.Error("fresh item should have attempts remaining")
	}
}

func TestMarkSentReschedulesWhileAttemptsRemain(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item := newTestItem()

	item.MarkSent(now, 24*time.Hour)

	if item.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", item.Attempts)
	}
	if item.Status != FollowUpStatusScheduled {
		t.Errorf("status = %s, want scheduled", item.Status)
	}
	if !item.ScheduledAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("scheduledAt = %v, want now+24h", item.ScheduledAt)
	}
	if item.ProcessedAt != nil {
		t.Error("processedAt must stay nil while the stage continues")
	}
}

func TestMarkSentExhaustsStage(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item := newTestItem()
	item.Attempts = 2

	item.MarkSent(now, 24*time.Hour)

	if item.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", item.Attempts)
	}
	if item.Status != FollowUpStatusSent {
		t.Errorf("status = %s, want sent", item.Status)
	}
	if item.ProcessedAt == nil || !item.ProcessedAt.Equal(now) {
		t.Errorf("processedAt = %v, want %v", item.ProcessedAt, now)
	}
	if item.CanRetry() {
		t.Error("exhausted stage must not allow further attempts")
	}
}

func TestMarkSentClearsLastError(t *testing.T) {
	item := newTestItem()
	item.LastError = "previous transient failure"

	item.MarkSent(time.Now().UTC(), time.Hour)

	if item.LastError != "" {
		t.Errorf("lastError = %q, want cleared", item.LastError)
	}
}

func TestMarkFailed(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item := newTestItem()

	item.MarkFailed(now, errors.New("503 service unavailable"))

	if item.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", item.Attempts)
	}
	if item.Status != FollowUpStatusFailed {
		t.Errorf("status = %s, want failed", item.Status)
	}
	if item.LastError != "503 service unavailable" {
		t.Errorf("lastError = %q", item.LastError)
	}
	if item.ProcessedAt == nil {
		t.Error("processedAt should be set on failure")
	}
}

func TestMarkStopped(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item := newTestItem()

	item.MarkStopped(now, "parent reached terminal state: paid")

	if item.Status != FollowUpStatusStopped {
		t.Errorf("status = %s, want stopped", item.Status)
	}
	if item.LastError != "parent reached terminal state: paid" {
		t.Errorf("lastError = %q", item.LastError)
	}
	if item.Attempts != 0 {
		t.Errorf("stopping must not consume an attempt, attempts = %d", item.Attempts)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      FollowUpStatus
		scheduledAt time.Time
		want        bool
	}{
		{"pending past schedule", FollowUpStatusPending, now.Add(-time.Hour), true},
		{"scheduled past schedule", FollowUpStatusScheduled, now.Add(-time.Hour), true},
		{"ready past schedule", FollowUpStatusReadyForDispatch, now.Add(-time.Hour), true},
		{"scheduled exactly now", FollowUpStatusScheduled, now, true},
		{"scheduled in future", FollowUpStatusScheduled, now.Add(time.Hour), false},
		{"sending is not due", FollowUpStatusSending, now.Add(-time.Hour), false},
		{"sent is not due", FollowUpStatusSent, now.Add(-time.Hour), false},
		{"failed is not due", FollowUpStatusFailed, now.Add(-time.Hour), false},
		{"stopped is not due", FollowUpStatusStopped, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newTestItem()
			item.Status = tt.status
			item.ScheduledAt = tt.scheduledAt
			if got := item.IsDue(now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []FollowUpStatus{FollowUpStatusSent, FollowUpStatusFailed, FollowUpStatusStopped}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	live := []FollowUpStatus{FollowUpStatusPending, FollowUpStatusScheduled, FollowUpStatusReadyForDispatch, FollowUpStatusSending}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParentTerminalStatuses(t *testing.T) {
	invoiceCases := map[InvoiceStatus]bool{
		InvoiceStatusDraft:     false,
		InvoiceStatusSent:      false,
		InvoiceStatusOverdue:   false,
		InvoiceStatusPaid:      true,
		InvoiceStatusCancelled: true,
	}
	for status, want := range invoiceCases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("invoice %s terminal = %v, want %v", status, got, want)
		}
	}

	quoteCases := map[QuoteStatus]bool{
		QuoteStatusDraft:    false,
		QuoteStatusSent:     false,
		QuoteStatusAccepted: true,
		QuoteStatusDeclined: true,
		QuoteStatusExpired:  true,
	}
	for status, want := range quoteCases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("quote %s terminal = %v, want %v", status, got, want)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() >= PriorityMedium.Rank() || PriorityMedium.Rank() >= PriorityLow.Rank() {
		t.Error("priority rank order must be high < medium < low")
	}
	var unknown Priority = "whatever"
	if unknown.Rank() != PriorityLow.Rank() {
		t.Errorf("unknown priority should rank as low, got %d", unknown.Rank())
	}
}
