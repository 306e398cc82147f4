package model

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturio/backend/internal/domain/entity"
)

// InvoiceModel represents the invoices table in the database.
type InvoiceModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Number      string          `gorm:"type:varchar(50);not null"`
	Status      string          `gorm:"type:varchar(20);not null;index"`
	IssueDate   time.Time       `gorm:"not null"`
	DueDate     time.Time       `gorm:"not null"`
	Total       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Description string          `gorm:"type:text"`
	Lines       string          `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the InvoiceModel.
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToEntity converts an InvoiceModel to a domain Invoice entity.
func (m *InvoiceModel) ToEntity() *entity.Invoice {
	return &entity.Invoice{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		ClientID:    m.ClientID,
		Number:      m.Number,
		Status:      entity.InvoiceStatus(m.Status),
		IssueDate:   m.IssueDate,
		DueDate:     m.DueDate,
		Total:       m.Total,
		Currency:    m.Currency,
		Description: m.Description,
		Lines:       linesFromJSON(m.Lines, m.ID),
		CreatedAt:   m.CreatedAt,
	}
}

// QuoteModel represents the quotes table in the database.
type QuoteModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Number      string          `gorm:"type:varchar(50);not null"`
	Status      string          `gorm:"type:varchar(20);not null;index"`
	IssueDate   time.Time       `gorm:"not null"`
	ExpiryDate  time.Time       `gorm:"not null"`
	Total       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Description string          `gorm:"type:text"`
	Lines       string          `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the QuoteModel.
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToEntity converts a QuoteModel to a domain Quote entity.
func (m *QuoteModel) ToEntity() *entity.Quote {
	return &entity.Quote{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		ClientID:    m.ClientID,
		Number:      m.Number,
		Status:      entity.QuoteStatus(m.Status),
		IssueDate:   m.IssueDate,
		ExpiryDate:  m.ExpiryDate,
		Total:       m.Total,
		Currency:    m.Currency,
		Description: m.Description,
		Lines:       linesFromJSON(m.Lines, m.ID),
		CreatedAt:   m.CreatedAt,
	}
}

// lineJSON is the stored shape of a document line.
type lineJSON struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func linesFromJSON(raw string, id uuid.UUID) []entity.InvoiceLine {
	if raw == "" {
		return nil
	}
	var stored []lineJSON
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		slog.Warn("Failed to unmarshal document lines", "error", err, "id", id)
		return nil
	}
	lines := make([]entity.InvoiceLine, len(stored))
	for i, l := range stored {
		lines[i] = entity.InvoiceLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
	}
	return lines
}

// LinesToJSON serializes document lines for storage; the seeders and tests
// use it to build fixture rows.
func LinesToJSON(lines []entity.InvoiceLine) string {
	stored := make([]lineJSON, len(lines))
	for i, l := range lines {
		stored[i] = lineJSON{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		slog.Error("Failed to marshal document lines", "error", err)
		return "[]"
	}
	return string(raw)
}
