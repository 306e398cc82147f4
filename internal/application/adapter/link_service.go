package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/domain/entity"
)

// LinkService builds customer-facing deep links embedded in reminder
// messages. Links carry a signed token so clients open their document
// without logging in.
type LinkService interface {
	// CustomerLink returns the absolute URL for the client view of the
	// given invoice or quote.
	CustomerLink(kind entity.ParentKind, parentID, clientID uuid.UUID) (string, error)
}

// MessagePolisher optionally rewrites the opening line of a reminder in the
// recipient's language. Best effort: any error leaves the original text in
// place and never blocks dispatch.
type MessagePolisher interface {
	// PolishOpening returns a polished variant of text, or an error when
	// the helper is unavailable.
	PolishOpening(ctx context.Context, text, language string) (string, error)
}
