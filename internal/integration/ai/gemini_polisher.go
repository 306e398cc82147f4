// Package ai provides the optional Gemini-backed message helper.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/infra/circuitbreaker"
)

// GeminiPolisher rewrites the opening of a reminder in the recipient's
// language. It is guarded by a circuit breaker so a degraded model API is
// skipped instead of slowing every dispatch; callers treat any error as
// "keep the original text".
type GeminiPolisher struct {
	apiKey    string
	modelName string
	breaker   *circuitbreaker.Breaker
}

// NewGeminiPolisher creates a polisher. The breaker is required; its clock
// is injectable for tests.
func NewGeminiPolisher(apiKey string, breaker *circuitbreaker.Breaker) *GeminiPolisher {
	return &GeminiPolisher{
		apiKey:    apiKey,
		modelName: "gemini-2.5-flash-lite",
		breaker:   breaker,
	}
}

// IsAvailable checks if the polisher is configured.
func (p *GeminiPolisher) IsAvailable() bool {
	return p.apiKey != ""
}

// PolishOpening returns a polished variant of text, or an error when the
// helper is unavailable or the breaker is open.
func (p *GeminiPolisher) PolishOpening(ctx context.Context, text, language string) (string, error) {
	if !p.IsAvailable() {
		return "", fmt.Errorf("gemini polisher is not configured")
	}
	if !p.breaker.Allow() {
		return "", circuitbreaker.ErrOpen
	}

	polished, err := p.generate(ctx, text, language)
	if err != nil {
		p.breaker.RecordFailure()
		return "", err
	}
	p.breaker.RecordSuccess()
	return polished, nil
}

func (p *GeminiPolisher) generate(ctx context.Context, text, language string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.modelName)
	model.SetTemperature(0.4)

	prompt := p.buildPrompt(text, language)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	polished := strings.TrimSpace(sb.String())
	if polished == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return polished, nil
}

func (p *GeminiPolisher) buildPrompt(text, language string) string {
	var sb strings.Builder
	sb.WriteString("You rewrite the opening of a payment or quote reminder to sound courteous and professional.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Keep every fact, amount, date and URL exactly as written.\n")
	sb.WriteString("- Keep the same language as the original message")
	if language != "" {
		sb.WriteString(" (" + language + ")")
	}
	sb.WriteString(".\n")
	sb.WriteString("- Return only the rewritten message, no commentary.\n\n")
	sb.WriteString("Message:\n")
	sb.WriteString(text)
	return sb.String()
}

var _ adapter.MessagePolisher = (*GeminiPolisher)(nil)
