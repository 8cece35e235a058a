package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/metrics"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	// Transition applies change only while the invoice is still in status from.
	// It returns ErrInvalidTransition when the row has moved on.
	Transition(ctx context.Context, id uuid.UUID, from Status, change StatusChange) (*Invoice, error)

	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)

	BeginImport(ctx context.Context, ownerID uuid.UUID) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, ownerID uuid.UUID, numbers []string) ([]*Invoice, error)
	CreateInvoices(ctx context.Context, invs []*Invoice) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo     Repository
	detector *Detector
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for reviewed_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		detector: NewDetector(repo),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	OwnerID            uuid.UUID
	InvoiceNumber      string
	Vendor             string
	Date               time.Time
	Amount             decimal.Decimal
	Description        string
	FileURL            string
	CategoryID         *uuid.UUID
	CategoryConfidence *float64
}

// UpdateParams holds the owner-editable fields. Nil fields are left unchanged.
// ClearCategory removes the category; it wins over CategoryID.
type UpdateParams struct {
	InvoiceNumber *string
	Vendor        *string
	Date          *time.Time
	Amount        *decimal.Decimal
	Description   *string
	CategoryID    *uuid.UUID
	ClearCategory bool
}

type ListFilter struct {
	OwnerID       *uuid.UUID
	Status        *Status
	StartDate     *time.Time
	EndDate       *time.Time
	CreatedBefore *time.Time
	Unreviewed    bool
	Search        string
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.InvoiceNumber) == "" {
		return fmt.Errorf("%w: invoice number is required", ErrValidation)
	}

	if strings.TrimSpace(p.Vendor) == "" {
		return fmt.Errorf("%w: vendor is required", ErrValidation)
	}

	if p.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	if p.CategoryConfidence != nil && (*p.CategoryConfidence < 0 || *p.CategoryConfidence > 1) {
		return fmt.Errorf("%w: category confidence must be within 0..1", ErrValidation)
	}

	return nil
}

func (p CreateParams) toInvoice() *Invoice {
	return &Invoice{
		OwnerID:            p.OwnerID,
		InvoiceNumber:      strings.TrimSpace(p.InvoiceNumber),
		Vendor:             strings.TrimSpace(p.Vendor),
		Date:               p.Date,
		Amount:             p.Amount,
		Status:             StatusPending,
		Description:        p.Description,
		FileURL:            p.FileURL,
		CategoryID:         p.CategoryID,
		CategoryConfidence: p.CategoryConfidence,
	}
}

// Create inserts a pending invoice. A duplicate invoice number yields a
// Result carrying the conflict instead of an error.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Result, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	inv := params.toInvoice()

	conflict, err := s.detector.Check(ctx, inv.OwnerID, inv.InvoiceNumber, uuid.Nil)
	if err != nil {
		return nil, err
	}

	if conflict != nil {
		return &Result{Conflict: conflict}, nil
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		conflict, err := s.detector.FromWriteError(ctx, inv.OwnerID, inv.InvoiceNumber, err)
		if err != nil {
			return nil, err
		}

		return &Result{Conflict: conflict}, nil
	}

	return &Result{Invoice: inv}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// ListStale returns pending, never reviewed invoices created before cutoff.
func (s *Service) ListStale(ctx context.Context, cutoff time.Time) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, ListFilter{
		Status:        new(StatusPending),
		CreatedBefore: &cutoff,
		Unreviewed:    true,
	})
}

// Update edits the owner-editable fields of a pending invoice. Changing the
// invoice number re-runs duplicate detection.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, params UpdateParams) (*Result, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	if inv.Status != StatusPending {
		return nil, ErrNotEditable
	}

	numberChanged := false

	if params.InvoiceNumber != nil {
		number := strings.TrimSpace(*params.InvoiceNumber)
		if number == "" {
			return nil, fmt.Errorf("%w: invoice number is required", ErrValidation)
		}

		numberChanged = number != inv.InvoiceNumber
		inv.InvoiceNumber = number
	}

	if params.Vendor != nil {
		vendor := strings.TrimSpace(*params.Vendor)
		if vendor == "" {
			return nil, fmt.Errorf("%w: vendor is required", ErrValidation)
		}

		inv.Vendor = vendor
	}

	if params.Amount != nil {
		if params.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
		}

		inv.Amount = *params.Amount
	}

	if params.Date != nil {
		inv.Date = *params.Date
	}

	if params.Description != nil {
		inv.Description = *params.Description
	}

	// A category chosen by hand carries no model confidence.
	switch {
	case params.ClearCategory:
		inv.CategoryID = nil
		inv.CategoryConfidence = nil
	case params.CategoryID != nil:
		inv.CategoryID = params.CategoryID
		inv.CategoryConfidence = nil
	}

	if numberChanged {
		conflict, err := s.detector.Check(ctx, ownerID, inv.InvoiceNumber, inv.ID)
		if err != nil {
			return nil, err
		}

		if conflict != nil {
			return &Result{Conflict: conflict}, nil
		}
	}

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		conflict, err := s.detector.FromWriteError(ctx, ownerID, inv.InvoiceNumber, err)
		if err != nil {
			return nil, err
		}

		return &Result{Conflict: conflict}, nil
	}

	return &Result{Invoice: inv}, nil
}

func (s *Service) Approve(ctx context.Context, id, reviewerID uuid.UUID) (*Invoice, error) {
	return s.transition(ctx, id, approval(reviewerID, s.now()))
}

func (s *Service) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string) (*Invoice, error) {
	change, err := rejection(reviewerID, s.now(), reason)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, id, change)
}

func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.transition(ctx, id, payment())
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, change StatusChange) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(inv, change.To); err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, id, inv.Status, change)
	if err != nil {
		return nil, err
	}

	metrics.InvoiceTransitions.WithLabelValues(string(inv.Status), string(change.To)).Inc()

	return updated, nil
}

type ImportResult struct {
	Imported  []*Invoice
	New       []CreateParams
	Conflicts []ImportConflict
}

// ImportConflict pairs an incoming row with the invoice already holding its
// number. Existing is nil when the clash is with an earlier row of the same batch.
type ImportConflict struct {
	Incoming CreateParams
	Existing *Invoice
}

// ImportBatch writes a batch of invoices for one owner. When any row clashes
// with a stored invoice or with an earlier row, nothing is written and the
// result lists the conflicts next to the rows that could be created.
func (s *Service) ImportBatch(ctx context.Context, ownerID uuid.UUID, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	params, err := ownBatch(ownerID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	numbers := make([]string, len(params))
	for i, p := range params {
		numbers[i] = p.InvoiceNumber
	}

	duplicates, err := itx.FindDuplicates(ctx, ownerID, numbers)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[string]*Invoice, len(duplicates))
	for _, d := range duplicates {
		lookup[d.InvoiceNumber] = d
	}

	seen := make(map[string]struct{}, len(params))

	var newParams []CreateParams

	var conflicts []ImportConflict

	for _, p := range params {
		if existing, found := lookup[p.InvoiceNumber]; found {
			conflicts = append(conflicts, ImportConflict{Incoming: p, Existing: existing})
			continue
		}

		if _, dup := seen[p.InvoiceNumber]; dup {
			conflicts = append(conflicts, ImportConflict{Incoming: p})
			continue
		}

		seen[p.InvoiceNumber] = struct{}{}
		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	invs := paramsToInvoices(newParams)
	if err := itx.CreateInvoices(ctx, invs); err != nil {
		return nil, fmt.Errorf("create invoices: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: invs}, nil
}

// CreateBatch writes the given rows without conflict screening. It is used to
// confirm the New subset of a previous ImportBatch; the store constraint still
// rejects numbers taken in the meantime.
func (s *Service) CreateBatch(ctx context.Context, ownerID uuid.UUID, params []CreateParams) ([]*Invoice, error) {
	if len(params) == 0 {
		return nil, nil
	}

	params, err := ownBatch(ownerID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	invs := paramsToInvoices(params)
	if err := itx.CreateInvoices(ctx, invs); err != nil {
		return nil, fmt.Errorf("create invoices: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return invs, nil
}

func ownBatch(ownerID uuid.UUID, params []CreateParams) ([]CreateParams, error) {
	out := make([]CreateParams, len(params))

	for i, p := range params {
		p.OwnerID = ownerID
		p.InvoiceNumber = strings.TrimSpace(p.InvoiceNumber)

		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		out[i] = p
	}

	return out, nil
}

func paramsToInvoices(params []CreateParams) []*Invoice {
	invs := make([]*Invoice, len(params))
	for i, p := range params {
		invs[i] = p.toInvoice()
	}

	return invs
}
