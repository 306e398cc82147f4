// Package email provides email sending functionality via Resend.
package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/facturio/backend/internal/application/adapter"
)

// ResendClient implements the adapter.EmailSender interface using Resend.
type ResendClient struct {
	client    *resend.Client
	fromName  string
	fromEmail string
}

// NewResendClient creates a new Resend client.
func NewResendClient(apiKey, fromName, fromEmail string) *ResendClient {
	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// Send sends an email via Resend. Any non-2xx provider response surfaces
// through the SDK error, body text included.
func (c *ResendClient) Send(ctx context.Context, input adapter.SendEmailInput) (*adapter.SendEmailResult, error) {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail)

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{input.To},
		Subject: input.Subject,
		Html:    input.HTML,
		Text:    input.Text,
	}

	for _, att := range input.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: att.Filename,
			Content:  att.Content,
		})
	}

	resp, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("resend send failed: %w", err)
	}

	return &adapter.SendEmailResult{
		ProviderMessageID: resp.Id,
	}, nil
}

// MockEmailSender is a mock implementation for testing.
type MockEmailSender struct {
	SentEmails []adapter.SendEmailInput
	ShouldFail bool
	FailError  error
}

// NewMockEmailSender creates a new mock email sender.
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{
		SentEmails: make([]adapter.SendEmailInput, 0),
	}
}

// Send implements the adapter.EmailSender interface for testing.
func (m *MockEmailSender) Send(ctx context.Context, input adapter.SendEmailInput) (*adapter.SendEmailResult, error) {
	if m.ShouldFail {
		if m.FailError != nil {
			return nil, m.FailError
		}
		return nil, fmt.Errorf("mock transport failure")
	}

	m.SentEmails = append(m.SentEmails, input)

	return &adapter.SendEmailResult{
		ProviderMessageID: fmt.Sprintf("mock-%d", len(m.SentEmails)),
	}, nil
}

// SetFailure configures the mock to fail with the given error.
func (m *MockEmailSender) SetFailure(err error) {
	m.ShouldFail = true
	m.FailError = err
}

// ClearFailure clears the failure configuration.
func (m *MockEmailSender) ClearFailure() {
	m.ShouldFail = false
	m.FailError = nil
}

// Reset clears all sent emails and failure configuration.
func (m *MockEmailSender) Reset() {
	m.SentEmails = make([]adapter.SendEmailInput, 0)
	m.ClearFailure()
}

// Ensure implementations satisfy interfaces.
var (
	_ adapter.EmailSender = (*ResendClient)(nil)
	_ adapter.EmailSender = (*MockEmailSender)(nil)
)
