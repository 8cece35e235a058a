package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type InvoiceLister interface {
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type Service struct {
	invoices InvoiceLister
	users    UserCounter
	now      func() time.Time
}

func NewService(invoices InvoiceLister, users UserCounter) *Service {
	return &Service{invoices: invoices, users: users, now: time.Now}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	invs, err := s.invoices.List(ctx, invoice.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	summary := Compute(invs, s.now(), DefaultTopOwners)
	summary.TotalUsers = users

	return summary, nil
}
