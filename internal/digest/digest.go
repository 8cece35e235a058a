// Package digest emails the admin a reminder about invoices that have been
// waiting for review longer than a minimum age.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

var ErrNoAdmin = errors.New("no admin to notify")

const nothingPending = "No pending invoices to remind about"

type StaleLister interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]*invoice.Invoice, error)
}

type AdminLookup interface {
	AdminEmail(ctx context.Context) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Writer renders the HTML body of a digest.
type Writer interface {
	Write(ctx context.Context, invs []*invoice.Invoice) (string, error)
}

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Result struct {
	Sent      bool   `json:"success"`
	Message   string `json:"message"`
	Count     int    `json:"invoices_count,omitempty"`
	Recipient string `json:"-"`
	MessageID string `json:"-"`
}

type Service struct {
	invoices StaleLister
	admins   AdminLookup
	mailer   Mailer
	writer   Writer
	fallback Writer
	minAge   time.Duration
	logger   *slog.Logger
}

// NewService builds a digest sender. writer may be nil, in which case the
// built-in template renders every digest.
func NewService(invoices StaleLister, admins AdminLookup, mailer Mailer, writer Writer, minAge time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		invoices: invoices,
		admins:   admins,
		mailer:   mailer,
		writer:   writer,
		fallback: TemplateWriter{},
		minAge:   minAge,
		logger:   logger,
	}
}

// Subject returns the digest subject line for n invoices.
func Subject(n int) string {
	noun := "Invoices"
	if n == 1 {
		noun = "Invoice"
	}

	return fmt.Sprintf("Reminder: %d %s Awaiting Your Review", n, noun)
}

// Send emails one digest covering every pending, unreviewed invoice created
// before now minus the minimum age. It sends nothing when there are none.
func (s *Service) Send(ctx context.Context, now time.Time) (*Result, error) {
	start := time.Now()

	invs, err := s.invoices.ListStale(ctx, now.Add(-s.minAge))
	if err != nil {
		return nil, fmt.Errorf("listing stale invoices: %w", err)
	}

	if len(invs) == 0 {
		s.logger.Info("digest.skip", "reason", "nothing pending")
		return &Result{Message: nothingPending}, nil
	}

	to, err := s.admins.AdminEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAdmin, err)
	}

	html := s.body(ctx, invs)

	id, err := s.mailer.Send(ctx, Message{To: to, Subject: Subject(len(invs)), HTML: html})
	if err != nil {
		return nil, fmt.Errorf("sending digest: %w", err)
	}

	s.logger.Info("digest.sent",
		"to", to,
		"invoices", len(invs),
		"message_id", id,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Sent:      true,
		Message:   "Reminder sent to " + to,
		Count:     len(invs),
		Recipient: to,
		MessageID: id,
	}, nil
}

func (s *Service) body(ctx context.Context, invs []*invoice.Invoice) string {
	if s.writer != nil {
		html, err := s.writer.Write(ctx, invs)
		if err == nil && html != "" {
			return html
		}

		s.logger.Warn("digest.writer.fallback", "error", err)
	}

	html, err := s.fallback.Write(ctx, invs)
	if err != nil {
		s.logger.Error("digest.template.failed", "error", err)
		return Subject(len(invs))
	}

	return html
}
