package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type fakeInvoices struct {
	invs   []*invoice.Invoice
	cutoff time.Time
}

func (f *fakeInvoices) ListStale(_ context.Context, cutoff time.Time) ([]*invoice.Invoice, error) {
	f.cutoff = cutoff
	return f.invs, nil
}

type fakeAdmins struct {
	email string
	err   error
}

func (f fakeAdmins) AdminEmail(context.Context) (string, error) { return f.email, f.err }

type fakeMailer struct {
	sent []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.sent = append(f.sent, msg)

	return "msg-1", nil
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func stale() []*invoice.Invoice {
	return []*invoice.Invoice{
		{
			ID:            uuid.New(),
			InvoiceNumber: "INV-7",
			Vendor:        "Acme <Corp>",
			Amount:        decimal.RequireFromString("99.5"),
			Status:        invoice.StatusPending,
			CreatedAt:     now.Add(-48 * time.Hour),
			Owner:         &invoice.Owner{Email: "bo@example.com"},
		},
		{
			ID:            uuid.New(),
			InvoiceNumber: "INV-8",
			Vendor:        "Globex",
			Amount:        decimal.NewFromInt(10),
			Status:        invoice.StatusPending,
			CreatedAt:     now.Add(-30 * time.Hour),
		},
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Reminder: 1 Invoice Awaiting Your Review", Subject(1))
	assert.Equal(t, "Reminder: 3 Invoices Awaiting Your Review", Subject(3))
}

func TestService_Send(t *testing.T) {
	type testCase struct {
		name       string
		invs       []*invoice.Invoice
		admins     fakeAdmins
		mailErr    error
		writer     Writer
		wantErr    error
		wantSent   bool
		wantMsg    string
		verifyMail func(t *testing.T, msgs []Message)
	}

	tests := []testCase{
		{
			name:    "Nothing Pending",
			invs:    nil,
			wantMsg: "No pending invoices to remind about",
			verifyMail: func(t *testing.T, msgs []Message) {
				assert.Empty(t, msgs)
			},
		},
		{
			name:     "Template Body",
			invs:     stale(),
			admins:   fakeAdmins{email: "admin@example.com"},
			wantSent: true,
			wantMsg:  "Reminder sent to admin@example.com",
			verifyMail: func(t *testing.T, msgs []Message) {
				require.Len(t, msgs, 1)
				assert.Equal(t, "admin@example.com", msgs[0].To)
				assert.Equal(t, "Reminder: 2 Invoices Awaiting Your Review", msgs[0].Subject)
				assert.Contains(t, msgs[0].HTML, "INV-7")
				assert.Contains(t, msgs[0].HTML, "Acme &lt;Corp&gt;")
				assert.Contains(t, msgs[0].HTML, "99.50")
				assert.Contains(t, msgs[0].HTML, "bo@example.com")
				assert.Contains(t, msgs[0].HTML, "2 invoices have been waiting")
			},
		},
		{
			name:     "AI Body",
			invs:     stale(),
			admins:   fakeAdmins{email: "admin@example.com"},
			writer:   NewAIWriter(&fakeCompleter{reply: "```html\n<p>Please review</p>\n```"}),
			wantSent: true,
			verifyMail: func(t *testing.T, msgs []Message) {
				require.Len(t, msgs, 1)
				assert.Equal(t, "<p>Please review</p>", msgs[0].HTML)
			},
		},
		{
			name:     "AI Failure Falls Back To Template",
			invs:     stale()[:1],
			admins:   fakeAdmins{email: "admin@example.com"},
			writer:   NewAIWriter(&fakeCompleter{err: errors.New("gateway down")}),
			wantSent: true,
			verifyMail: func(t *testing.T, msgs []Message) {
				require.Len(t, msgs, 1)
				assert.Equal(t, "Reminder: 1 Invoice Awaiting Your Review", msgs[0].Subject)
				assert.Contains(t, msgs[0].HTML, "1 invoice has been waiting")
			},
		},
		{
			name:    "No Admin",
			invs:    stale(),
			admins:  fakeAdmins{err: errors.New("not found")},
			wantErr: ErrNoAdmin,
		},
		{
			name:    "Mailer Error",
			invs:    stale(),
			admins:  fakeAdmins{email: "admin@example.com"},
			mailErr: errors.New("resend: 422"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			invs := &fakeInvoices{invs: tc.invs}
			mailer := &fakeMailer{err: tc.mailErr}
			svc := NewService(invs, tc.admins, mailer, tc.writer, 24*time.Hour, quiet())

			res, err := svc.Send(context.Background(), now)

			assert.Equal(t, now.Add(-24*time.Hour), invs.cutoff)

			if tc.wantErr != nil || tc.mailErr != nil {
				require.Error(t, err)
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantSent, res.Sent)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, res.Message)
			}
			if tc.wantSent {
				assert.Equal(t, len(tc.invs), res.Count)
				assert.Equal(t, "msg-1", res.MessageID)
			}
			if tc.verifyMail != nil {
				tc.verifyMail(t, mailer.sent)
			}
		})
	}
}

func TestAIWriter_PromptListsInvoices(t *testing.T) {
	llm := &fakeCompleter{reply: "<p>hi</p>"}

	html, err := NewAIWriter(llm).Write(context.Background(), stale())
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", html)
	assert.Contains(t, llm.prompt, "2 pending invoice(s)")
	assert.Contains(t, llm.prompt, `"invoice_number": "INV-8"`)
	assert.Contains(t, llm.prompt, `"amount": "10.00"`)
}
