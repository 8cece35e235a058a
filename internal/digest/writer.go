package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const writerSystem = "You are a professional email writer. Generate clear, concise, and professional email content."

// Completer is the text-completion half of the extraction client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AIWriter asks a language model to draft the digest.
type AIWriter struct {
	llm Completer
}

func NewAIWriter(llm Completer) *AIWriter {
	return &AIWriter{llm: llm}
}

type digestLine struct {
	InvoiceNumber string    `json:"invoice_number"`
	Vendor        string    `json:"vendor"`
	Amount        string    `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
	UserEmail     string    `json:"user_email"`
}

func lines(invs []*invoice.Invoice) []digestLine {
	out := make([]digestLine, 0, len(invs))

	for _, inv := range invs {
		l := digestLine{
			InvoiceNumber: inv.InvoiceNumber,
			Vendor:        inv.Vendor,
			Amount:        inv.Amount.StringFixed(2),
			CreatedAt:     inv.CreatedAt,
		}

		if inv.Owner != nil {
			l.UserEmail = inv.Owner.Email
		}

		out = append(out, l)
	}

	return out
}

func (w *AIWriter) Write(ctx context.Context, invs []*invoice.Invoice) (string, error) {
	details, err := json.MarshalIndent(lines(invs), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding invoice details: %w", err)
	}

	prompt := fmt.Sprintf(`Generate a professional reminder email for an admin who has %d pending invoice(s) to review. The invoices have been pending for more than 24 hours.

Invoice details:
%s

Create a concise, professional email that:
1. Politely reminds them about pending approvals
2. Lists the key details (invoice number, vendor, amount)
3. Emphasizes the importance of timely review
4. Has a friendly but professional tone

Return only the email body HTML (no subject line).`, len(invs), details)

	html, err := w.llm.Complete(ctx, writerSystem, prompt)
	if err != nil {
		return "", err
	}

	return stripFence(html), nil
}

// stripFence removes a markdown code fence wrapped around the reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

var digestTemplate = template.Must(template.New("digest").Parse(`<p>Hello,</p>
<p>{{len .}} invoice{{if gt (len .) 1}}s have{{else}} has{{end}} been waiting for your review for more than a day.</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Invoice</th><th align="left">Vendor</th><th align="right">Amount</th><th align="left">Submitted by</th><th align="left">Submitted</th></tr>
{{range .}}<tr><td>{{.InvoiceNumber}}</td><td>{{.Vendor}}</td><td align="right">{{.Amount}}</td><td>{{.UserEmail}}</td><td>{{.CreatedAt.Format "2006-01-02"}}</td></tr>
{{end}}</table>
<p>Please review them at your earliest convenience.</p>
`))

// TemplateWriter renders the digest from a fixed HTML template.
type TemplateWriter struct{}

func (TemplateWriter) Write(_ context.Context, invs []*invoice.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, lines(invs)); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}

	return buf.String(), nil
}
