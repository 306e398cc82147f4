package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// InvoiceRepository exposes read access to invoices. The dispatch engine
// never writes to parent entities.
type InvoiceRepository interface {
	// GetByID retrieves an invoice, or domain error ErrParentNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
}

// QuoteRepository exposes read access to quotes.
type QuoteRepository interface {
	// GetByID retrieves a quote, or domain error ErrParentNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Quote, error)
}

// ClientRepository exposes read access to clients (follow-up recipients).
type ClientRepository interface {
	// GetByID retrieves a client, or domain error ErrClientNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error)
}

// UserRepository exposes read access to account owners.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}
