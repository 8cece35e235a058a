package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// transitions lists the legal targets for each source status. unpaid is set
// by external determination and never reached through this table.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid},
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// StatusChange is the set of columns written by a lifecycle transition.
type StatusChange struct {
	To              Status
	ReviewerID      *uuid.UUID
	ReviewedAt      *time.Time
	RejectionReason string
}

func approval(reviewerID uuid.UUID, at time.Time) StatusChange {
	return StatusChange{
		To:         StatusApproved,
		ReviewerID: &reviewerID,
		ReviewedAt: &at,
	}
}

func rejection(reviewerID uuid.UUID, at time.Time, reason string) (StatusChange, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return StatusChange{}, ErrMissingReason
	}

	return StatusChange{
		To:              StatusRejected,
		ReviewerID:      &reviewerID,
		ReviewedAt:      &at,
		RejectionReason: reason,
	}, nil
}

func payment() StatusChange {
	return StatusChange{To: StatusPaid}
}

func checkTransition(inv *Invoice, to Status) error {
	if !CanTransition(inv.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, to)
	}

	return nil
}
