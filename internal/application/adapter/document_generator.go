package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturio/backend/internal/domain/entity"
)

// DocumentInput carries the already-loaded data a generated document is
// built from. No untrusted input enters the document pipeline.
type DocumentInput struct {
	Kind          entity.ParentKind
	Number        string
	IssueDate     time.Time
	DueDate       time.Time
	Total         decimal.Decimal
	Currency      string
	Description   string
	Lines         []entity.InvoiceLine
	ClientName    string
	ClientAddress string
	ClientCity    string
	ClientZip     string
	ClientCountry string
	SenderName    string
	Language      string
}

// DocumentGenerator produces a PDF rendition of an invoice or quote.
// Generation is best effort: a nil attachment means the feature is disabled
// or every renderer backend failed, and dispatch proceeds without it.
type DocumentGenerator interface {
	// TryGenerate returns the document attachment, or nil.
	TryGenerate(ctx context.Context, input DocumentInput) *Attachment
}
