package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the business status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsTerminal reports whether no further follow-up should occur.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// InvoiceLine is a single billed line on an invoice or quote document.
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Invoice is read-only from the dispatch engine's perspective; only the
// status and the display fields used for rendering are needed.
type Invoice struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ClientID    uuid.UUID
	Number      string
	Status      InvoiceStatus
	IssueDate   time.Time
	DueDate     time.Time
	Total       decimal.Decimal
	Currency    string
	Description string
	Lines       []InvoiceLine
	CreatedAt   time.Time
}
