// Package document builds printable renditions of invoices and quotes and
// converts them to PDF through external rendering backends.
package document

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"time"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/application/usecase/render"
	"github.com/facturio/backend/internal/domain/entity"
)

//go:embed *.html
var templateFS embed.FS

// documentData is the template context for the printable document.
type documentData struct {
	Title         string
	Number        string
	IssueDate     string
	DueDate       string
	DueLabel      string
	ClientName    string
	ClientAddress []string
	SenderName    string
	Description   string
	Lines         []documentLine
	Total         string
}

type documentLine struct {
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// Builder renders the structured HTML representation of an invoice or
// quote from already-loaded data.
type Builder struct {
	tmpl *htmltemplate.Template
}

// NewBuilder parses the embedded document template.
func NewBuilder() (*Builder, error) {
	tmpl, err := htmltemplate.ParseFS(templateFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse document templates: %w", err)
	}
	return &Builder{tmpl: tmpl}, nil
}

// BuildHTML renders the document HTML for the given input.
func (b *Builder) BuildHTML(input adapter.DocumentInput) (string, error) {
	data := documentData{
		Title:       documentTitle(input.Kind, input.Language),
		Number:      input.Number,
		IssueDate:   render.FormatDate(input.IssueDate, input.Language),
		DueDate:     render.FormatDate(input.DueDate, input.Language),
		DueLabel:    dueLabel(input.Kind, input.Language),
		ClientName:  input.ClientName,
		SenderName:  input.SenderName,
		Description: input.Description,
		Total:       render.FormatAmount(input.Total, input.Currency, input.Language),
	}

	for _, part := range []string{input.ClientAddress, input.ClientZip + " " + input.ClientCity, input.ClientCountry} {
		if part != " " && part != "" {
			data.ClientAddress = append(data.ClientAddress, part)
		}
	}

	for _, line := range input.Lines {
		data.Lines = append(data.Lines, documentLine{
			Description: line.Description,
			Quantity:    line.Quantity.String(),
			UnitPrice:   render.FormatAmount(line.UnitPrice, input.Currency, input.Language),
			Total:       render.FormatAmount(line.Total, input.Currency, input.Language),
		})
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "document.html", data); err != nil {
		return "", fmt.Errorf("failed to render document HTML: %w", err)
	}
	return buf.String(), nil
}

// Filename returns the attachment filename for the document.
func Filename(kind entity.ParentKind, number string, issueDate time.Time) string {
	prefix := "invoice"
	if kind == entity.ParentKindQuote {
		prefix = "quote"
	}
	if number == "" {
		number = issueDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%s-%s.pdf", prefix, number)
}

func documentTitle(kind entity.ParentKind, language string) string {
	fr := render.NormalizeLanguage(language) == "fr"
	if kind == entity.ParentKindQuote {
		if fr {
			return "Devis"
		}
		return "Quote"
	}
	if fr {
		return "Facture"
	}
	return "Invoice"
}

func dueLabel(kind entity.ParentKind, language string) string {
	fr := render.NormalizeLanguage(language) == "fr"
	if kind == entity.ParentKindQuote {
		if fr {
			return "Valable jusqu'au"
		}
		return "Valid until"
	}
	if fr {
		return "Échéance"
	}
	return "Due date"
}
