package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReminderTemplate is a stored follow-up message template. Multiple
// templates may share a type across languages; resolution picks the best
// language match.
type ReminderTemplate struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Type      string
	Language  string
	Subject   string
	HTMLBody  string
	TextBody  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
