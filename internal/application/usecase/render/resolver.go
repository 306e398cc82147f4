// Package render contains template resolution and variable rendering for
// follow-up messages.
package render

import (
	"context"
	"strings"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	domainerror "github.com/facturio/backend/internal/domain/error"
)

// TemplateSource identifies which step of the fallback chain produced the
// resolved template.
type TemplateSource string

const (
	SourcePreferredLanguage TemplateSource = "preferred_language"
	SourceDefaultLanguage   TemplateSource = "default_language"
	SourceAnyLanguage       TemplateSource = "any_language"
	SourceEmbedded          TemplateSource = "embedded"
)

// ResolvedTemplate is the message content selected for a follow-up.
type ResolvedTemplate struct {
	Subject  string
	HTML     string
	Text     string
	Language string
	Source   TemplateSource
}

// Resolver selects the template content for a follow-up with a
// deterministic fallback chain: preferred language, then the system default
// language, then any active template of the type, then the content frozen
// on the item at creation time.
type Resolver struct {
	templates     adapter.TemplateRepository
	defaultLocale string
}

// NewResolver creates a template resolver. defaultLocale is the system
// default ("fr" in production).
func NewResolver(templates adapter.TemplateRepository, defaultLocale string) *Resolver {
	return &Resolver{
		templates:     templates,
		defaultLocale: defaultLocale,
	}
}

// Resolve returns the template for the item's type and the client's
// preferred language. Exhausting the chain is a permanent failure.
func (r *Resolver) Resolve(ctx context.Context, item *entity.FollowUpItem, preferredLanguage string) (*ResolvedTemplate, error) {
	templateType := item.Meta.TemplateType
	if templateType == "" {
		templateType = item.TemplateKey
	}
	lang := NormalizeLanguage(preferredLanguage)

	if lang != "" {
		tmpl, err := r.templates.FindActive(ctx, item.OwnerID, templateType, lang)
		if err != nil {
			return nil, domainerror.NewTransientError(domainerror.ErrCodeDatastoreFailed, "template lookup failed", err)
		}
		if tmpl != nil {
			return fromStored(tmpl, SourcePreferredLanguage), nil
		}
	}

	if lang != r.defaultLocale {
		tmpl, err := r.templates.FindActive(ctx, item.OwnerID, templateType, r.defaultLocale)
		if err != nil {
			return nil, domainerror.NewTransientError(domainerror.ErrCodeDatastoreFailed, "template lookup failed", err)
		}
		if tmpl != nil {
			return fromStored(tmpl, SourceDefaultLanguage), nil
		}
	}

	tmpl, err := r.templates.FindActiveAnyLanguage(ctx, item.OwnerID, templateType)
	if err != nil {
		return nil, domainerror.NewTransientError(domainerror.ErrCodeDatastoreFailed, "template lookup failed", err)
	}
	if tmpl != nil {
		return fromStored(tmpl, SourceAnyLanguage), nil
	}

	if item.FallbackSubject != "" || item.FallbackHTML != "" || item.FallbackText != "" {
		return &ResolvedTemplate{
			Subject:  item.FallbackSubject,
			HTML:     item.FallbackHTML,
			Text:     item.FallbackText,
			Language: r.defaultLocale,
			Source:   SourceEmbedded,
		}, nil
	}

	return nil, domainerror.NewPermanentError(domainerror.ErrCodeNoTemplate, "no template available for type "+templateType, domainerror.ErrNoTemplate)
}

func fromStored(tmpl *entity.ReminderTemplate, source TemplateSource) *ResolvedTemplate {
	return &ResolvedTemplate{
		Subject:  tmpl.Subject,
		HTML:     tmpl.HTMLBody,
		Text:     tmpl.TextBody,
		Language: tmpl.Language,
		Source:   source,
	}
}

// NormalizeLanguage reduces a language preference to its lowercase primary
// subtag ("fr-CH" -> "fr").
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
