// Package dispatch contains the follow-up dispatch engine.
package dispatch

import (
	"context"
	"errors"
	"strings"

	domainerror "github.com/facturio/backend/internal/domain/error"
)

// classifyError normalizes any error raised while processing one item into
// a coded FollowUpError so that lastError and event metadata distinguish
// permanent from transient causes. Errors already carrying a code pass
// through unchanged.
func classifyError(err error) *domainerror.FollowUpError {
	if err == nil {
		return nil
	}

	var fe *domainerror.FollowUpError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerror.NewTransientError(domainerror.ErrCodeTimeout, "operation timed out", err)
	}

	switch {
	case errors.Is(err, domainerror.ErrParentNotFound):
		return domainerror.NewPermanentError(domainerror.ErrCodeParentNotFound, "parent entity not found", err)
	case errors.Is(err, domainerror.ErrClientNotFound):
		return domainerror.NewPermanentError(domainerror.ErrCodeClientNotFound, "client not found", err)
	case errors.Is(err, domainerror.ErrClientEmailMissing):
		return domainerror.NewPermanentError(domainerror.ErrCodeClientEmailMissing, "client has no email address", err)
	case errors.Is(err, domainerror.ErrNoTemplate):
		return domainerror.NewPermanentError(domainerror.ErrCodeNoTemplate, "no template available", err)
	}

	if isPermanentTransportError(err) {
		return domainerror.NewPermanentError(domainerror.ErrCodeTransportFailed, "transport rejected message", err)
	}

	return domainerror.NewTransientError(domainerror.ErrCodeTransportFailed, "transient dispatch failure", err)
}

// isPermanentTransportError checks provider responses that retrying cannot
// fix: auth failures and payload validation rejections. Rate limits and 5xx
// stay transient.
func isPermanentTransportError(err error) bool {
	msg := strings.ToLower(err.Error())
	permanentPatterns := []string{
		"401",
		"403",
		"422",
		"unauthorized",
		"forbidden",
		"validation",
		"invalid recipient",
	}
	for _, pattern := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
