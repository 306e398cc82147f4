package entity

import (
	"time"

	"github.com/google/uuid"
)

// Client is the recipient of follow-up messages. A client without an email
// address cannot receive reminders; dispatch fails fast for such items.
type Client struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Email     string
	Language  string
	Address   string
	City      string
	ZipCode   string
	Country   string
	CreatedAt time.Time
}

// HasEmail reports whether the client can be reached by email.
func (c *Client) HasEmail() bool {
	return c.Email != ""
}
