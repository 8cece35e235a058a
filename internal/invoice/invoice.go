package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an invoice.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
	StatusUnpaid   Status = "unpaid"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid, StatusUnpaid:
		return true
	}

	return false
}

// Invoice represents one submitted invoice.
type Invoice struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	InvoiceNumber      string
	Vendor             string
	Date               time.Time
	Amount             decimal.Decimal
	Status             Status
	Description        string
	FileURL            string
	CategoryID         *uuid.UUID
	CategoryConfidence *float64
	ReviewerID         *uuid.UUID
	ReviewedAt         *time.Time
	RejectionReason    string
	Category           *Category // Loaded via JOIN
	Owner              *Owner    // Loaded via JOIN
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Category is the display data of the invoice's category.
type Category struct {
	ID    uuid.UUID
	Name  string
	Color string
}

// Owner is the profile data of the user that submitted the invoice.
type Owner struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// Result is the outcome of a write guarded by the duplicate detector.
// Exactly one of Invoice or Conflict is set.
type Result struct {
	Invoice  *Invoice
	Conflict *Conflict
}

// Conflict describes an attempted invoice number that is already used by
// another invoice of the same owner.
type Conflict struct {
	AttemptedNumber string
	Existing        *Invoice
}
