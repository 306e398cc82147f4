package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/infra/circuitbreaker"
)

// rendererBreakerThreshold and rendererBreakerCooldown tune the per-backend
// circuit breakers: a backend is skipped after three consecutive failures
// and probed again a minute later.
const (
	rendererBreakerThreshold = 3
	rendererBreakerCooldown  = time.Minute
)

// backend is one HTML-to-PDF rendering service.
type backend struct {
	url     string
	breaker *circuitbreaker.Breaker
}

// Generator implements adapter.DocumentGenerator over a chain of external
// rendering backends tried in order. Every failure path returns nil: a
// missing attachment never blocks dispatch.
type Generator struct {
	builder  *Builder
	backends []backend
	client   *http.Client
}

// NewGenerator creates a generator for the given backend URLs. An empty
// list is the valid "feature disabled" state. A nil clock uses time.Now.
func NewGenerator(builder *Builder, backendURLs []string, requestTimeout time.Duration, clock circuitbreaker.Clock) *Generator {
	backends := make([]backend, 0, len(backendURLs))
	for _, url := range backendURLs {
		backends = append(backends, backend{
			url:     url,
			breaker: circuitbreaker.New(rendererBreakerThreshold, rendererBreakerCooldown, clock),
		})
	}
	return &Generator{
		builder:  builder,
		backends: backends,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// TryGenerate builds the document HTML and converts it through the first
// healthy backend. Returns nil when disabled or every backend fails.
func (g *Generator) TryGenerate(ctx context.Context, input adapter.DocumentInput) *adapter.Attachment {
	if len(g.backends) == 0 {
		return nil
	}

	html, err := g.builder.BuildHTML(input)
	if err != nil {
		slog.Warn("Failed to build document HTML", "error", err, "number", input.Number)
		return nil
	}

	for i := range g.backends {
		b := &g.backends[i]
		if !b.breaker.Allow() {
			slog.Debug("Renderer backend circuit open, skipping", "backend", b.url)
			continue
		}

		pdf, err := g.convert(ctx, b.url, html)
		if err != nil {
			b.breaker.RecordFailure()
			slog.Warn("Renderer backend failed", "backend", b.url, "error", err)
			continue
		}
		b.breaker.RecordSuccess()

		return &adapter.Attachment{
			Filename: Filename(input.Kind, input.Number, input.IssueDate),
			Content:  pdf,
		}
	}

	slog.Warn("All renderer backends unavailable, sending without attachment", "number", input.Number)
	return nil
}

// convert posts the HTML to a Gotenberg-compatible endpoint and returns the
// PDF bytes.
func (g *Generator) convert(ctx context.Context, url, html string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, fmt.Errorf("failed to write request body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, string(respBody))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read renderer response: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("renderer returned empty document")
	}
	return pdf, nil
}

var _ adapter.DocumentGenerator = (*Generator)(nil)
