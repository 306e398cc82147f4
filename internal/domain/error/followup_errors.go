// Package error defines domain-specific errors for the Facturio backend.
package error

import "errors"

// Follow-up domain errors.
var (
	// ErrParentNotFound is returned when the invoice or quote behind a
	// follow-up no longer exists.
	ErrParentNotFound = errors.New("parent entity not found")

	// ErrClientNotFound is returned when the follow-up recipient no longer exists.
	ErrClientNotFound = errors.New("client not found")

	// ErrClientEmailMissing is returned when the recipient has no email address.
	ErrClientEmailMissing = errors.New("client has no email address")

	// ErrNoTemplate is returned when the template fallback chain is exhausted.
	ErrNoTemplate = errors.New("no template available")

	// ErrNotEntitled is returned when an automated follow-up belongs to an
	// owner whose plan does not allow automatic sending.
	ErrNotEntitled = errors.New("automatic reminders require eligible plan")

	// ErrTransportFailed is returned when the email provider rejects a send.
	ErrTransportFailed = errors.New("transport send failed")

	// ErrItemNotClaimed is returned when the optimistic status claim finds the
	// item no longer in a due state (another scheduler got there first).
	ErrItemNotClaimed = errors.New("follow-up already claimed")

	// ErrFollowUpNotFound is returned when a follow-up item is not found.
	ErrFollowUpNotFound = errors.New("follow-up item not found")
)

// FollowUpErrorCode defines error codes for follow-up dispatch errors.
// Format: FOLLOWUP-XXYYYY where XX is category and YYYY is specific error.
type FollowUpErrorCode string

const (
	// Permanent item errors (01XXXX) — retrying cannot help without
	// external correction.
	ErrCodeParentNotFound     FollowUpErrorCode = "FOLLOWUP-010001"
	ErrCodeClientEmailMissing FollowUpErrorCode = "FOLLOWUP-010002"
	ErrCodeNoTemplate         FollowUpErrorCode = "FOLLOWUP-010003"
	ErrCodeClientNotFound     FollowUpErrorCode = "FOLLOWUP-010004"

	// Transient item errors (02XXXX) — eligible for retry up to max attempts.
	ErrCodeTransportFailed FollowUpErrorCode = "FOLLOWUP-020001"
	ErrCodeDatastoreFailed FollowUpErrorCode = "FOLLOWUP-020002"
	ErrCodeTimeout         FollowUpErrorCode = "FOLLOWUP-020003"

	// Run-level errors (03XXXX) — the whole invocation fails, no items mutated.
	ErrCodeRunQueryFailed FollowUpErrorCode = "FOLLOWUP-030001"
)

// FollowUpError represents a follow-up dispatch error with code and message.
type FollowUpError struct {
	Code      FollowUpErrorCode
	Message   string
	Err       error
	Permanent bool
}

// Error implements the error interface.
func (e *FollowUpError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *FollowUpError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a FollowUpError that must not be retried.
func NewPermanentError(code FollowUpErrorCode, message string, err error) *FollowUpError {
	return &FollowUpError{Code: code, Message: message, Err: err, Permanent: true}
}

// NewTransientError creates a FollowUpError eligible for retry.
func NewTransientError(code FollowUpErrorCode, message string, err error) *FollowUpError {
	return &FollowUpError{Code: code, Message: message, Err: err, Permanent: false}
}

// IsPermanent reports whether err is a permanent follow-up error.
func IsPermanent(err error) bool {
	var fe *FollowUpError
	return errors.As(err, &fe) && fe.Permanent
}
