package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the business status of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// IsTerminal reports whether no further follow-up should occur.
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusDeclined || s == QuoteStatusExpired
}

// Quote is read-only from the dispatch engine's perspective.
type Quote struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ClientID    uuid.UUID
	Number      string
	Status      QuoteStatus
	IssueDate   time.Time
	ExpiryDate  time.Time
	Total       decimal.Decimal
	Currency    string
	Description string
	Lines       []InvoiceLine
	CreatedAt   time.Time
}
