package adapter

import (
	"context"
)

// Attachment is a binary document attached to an outgoing email.
type Attachment struct {
	Filename string
	Content  []byte
}

// SendEmailInput represents the input for sending an email.
type SendEmailInput struct {
	To          string
	Name        string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// SendEmailResult represents the result of sending an email.
type SendEmailResult struct {
	ProviderMessageID string
}

// EmailSender defines the interface for sending emails via an external provider.
type EmailSender interface {
	// Send sends an email via the email provider (e.g., Resend).
	Send(ctx context.Context, input SendEmailInput) (*SendEmailResult, error)
}
