package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/metrics"
)

// Finder looks up an owner's invoice by number. It returns ErrNotFound when
// there is none.
type Finder interface {
	FindByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*Invoice, error)
}

// Detector guards writes against the (owner, invoice_number) uniqueness
// invariant. Check is the advisory pre-write lookup; FromWriteError turns the
// store's constraint violation into the same conflict outcome when two writes
// race past the pre-check.
type Detector struct {
	finder Finder
}

func NewDetector(finder Finder) *Detector {
	return &Detector{finder: finder}
}

// Check returns a conflict when another invoice of the owner already uses
// number. excludeID is the id of the invoice being updated, or uuid.Nil for inserts.
func (d *Detector) Check(ctx context.Context, ownerID uuid.UUID, number string, excludeID uuid.UUID) (*Conflict, error) {
	existing, err := d.finder.FindByNumber(ctx, ownerID, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("checking duplicate invoice number: %w", err)
	}

	if existing.ID == excludeID {
		return nil, nil
	}

	metrics.DuplicateConflicts.WithLabelValues("precheck").Inc()

	return &Conflict{AttemptedNumber: number, Existing: existing}, nil
}

// FromWriteError maps a duplicate-number write error to a conflict. Any other
// error is returned unchanged.
func (d *Detector) FromWriteError(ctx context.Context, ownerID uuid.UUID, number string, writeErr error) (*Conflict, error) {
	if !errors.Is(writeErr, ErrDuplicateNumber) {
		return nil, writeErr
	}

	existing, err := d.finder.FindByNumber(ctx, ownerID, number)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading conflicting invoice: %w", err)
	}

	metrics.DuplicateConflicts.WithLabelValues("constraint").Inc()

	return &Conflict{AttemptedNumber: number, Existing: existing}, nil
}
