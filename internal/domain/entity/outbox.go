package entity

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the transport status of an outbox record.
type OutboxStatus string

const (
	OutboxStatusSending OutboxStatus = "sending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxRecord is the audit record of one transport attempt. It is inserted
// in sending state before the provider is called and updated exactly once
// afterwards, so a crash mid-send leaves a visible "stuck sending" record
// instead of silent data loss.
type OutboxRecord struct {
	ID                uuid.UUID
	FollowUpID        uuid.UUID
	ToAddress         string
	Subject           string
	HTML              string
	Text              string
	AttachmentNames   []string
	Status            OutboxStatus
	ProviderMessageID string
	Error             string
	CreatedAt         time.Time
	SentAt            *time.Time
}

// NewOutboxRecord creates a record in sending state for the exact message
// that is about to go to the transport provider.
func NewOutboxRecord(followUpID uuid.UUID, to, subject, html, text string, attachmentNames []string, now time.Time) *OutboxRecord {
	return &OutboxRecord{
		ID:              uuid.New(),
		FollowUpID:      followUpID,
		ToAddress:       to,
		Subject:         subject,
		HTML:            html,
		Text:            text,
		AttachmentNames: attachmentNames,
		Status:          OutboxStatusSending,
		CreatedAt:       now,
	}
}

// MarkSent records the provider acknowledgement.
func (o *OutboxRecord) MarkSent(providerMessageID string, now time.Time) {
	o.Status = OutboxStatusSent
	o.ProviderMessageID = providerMessageID
	sent := now
	o.SentAt = &sent
}

// MarkFailed records the transport error.
func (o *OutboxRecord) MarkFailed(err error) {
	o.Status = OutboxStatusFailed
	if err != nil {
		o.Error = err.Error()
	}
}
