package render

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Substitution is literal find/replace of {placeholder} tokens, never
// template-language execution, so stored template content cannot inject
// behavior. Unknown placeholders are left as-is.
var placeholderRegex = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Variables is the computed runtime context merged into a template.
type Variables map[string]string

// RenderVariables replaces every known {placeholder} token in text. It is a
// pure, total function: unknown placeholders stay literal and no input can
// make it fail.
func RenderVariables(text string, vars Variables) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// VariableInput carries the loaded data the variables are computed from.
type VariableInput struct {
	Number      string
	ClientName  string
	Language    string
	Amount      decimal.Decimal
	Currency    string
	IssueDate   time.Time
	DueDate     time.Time
	Link        string
	SenderName  string
	Description string
}

// BuildVariables computes the full substitution context for a follow-up
// message at the given instant.
func BuildVariables(input VariableInput, now time.Time) Variables {
	lang := NormalizeLanguage(input.Language)
	return Variables{
		"number":         input.Number,
		"client_name":    clientDisplayName(input.ClientName, lang),
		"amount":         FormatAmount(input.Amount, input.Currency, lang),
		"issue_date":     FormatDate(input.IssueDate, lang),
		"due_date":       FormatDate(input.DueDate, lang),
		"days_overdue":   strconv.Itoa(DaysOverdue(input.DueDate, now)),
		"days_until_due": strconv.Itoa(DaysUntilDue(input.DueDate, now)),
		"link":           input.Link,
		"sender_name":    input.SenderName,
		"description":    input.Description,
	}
}

// DaysOverdue is max(0, floor(now - dueDate in days)).
func DaysOverdue(dueDate, now time.Time) int {
	d := now.Sub(dueDate)
	if d <= 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// DaysUntilDue is max(0, ceil(dueDate - now in days)).
func DaysUntilDue(dueDate, now time.Time) int {
	d := dueDate.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d.Hours() / 24)
	if d > time.Duration(days)*24*time.Hour {
		days++
	}
	return days
}

// nbsp is the non-breaking space used by French number formatting.
const nbsp = " "

// FormatAmount renders a monetary amount in the recipient's locale
// conventions. French style groups thousands with non-breaking spaces and
// puts the symbol after the amount; the default style is symbol-first with
// comma grouping.
func FormatAmount(amount decimal.Decimal, currency, language string) string {
	symbol := currencySymbol(currency)
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	if NormalizeLanguage(language) == "fr" {
		grouped := groupThousands(intPart, nbsp)
		out := grouped + "," + fracPart + nbsp + symbol
		if neg {
			out = "-" + out
		}
		return out
	}

	grouped := groupThousands(intPart, ",")
	out := symbol + grouped + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "EUR", "":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "CHF":
		return "CHF"
	default:
		return strings.ToUpper(currency)
	}
}

// FormatDate renders a date in the recipient's locale conventions.
func FormatDate(t time.Time, language string) string {
	if t.IsZero() {
		return ""
	}
	switch NormalizeLanguage(language) {
	case "fr":
		return t.Format("02/01/2006")
	case "de":
		return t.Format("02.01.2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// clientDisplayName falls back to a polite generic salutation when the
// client name is absent.
func clientDisplayName(name, language string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	switch NormalizeLanguage(language) {
	case "fr":
		return "Madame, Monsieur"
	case "de":
		return "Sehr geehrte Damen und Herren"
	default:
		return "Dear customer"
	}
}
