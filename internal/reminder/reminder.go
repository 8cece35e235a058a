package reminder

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("reminder not found")
	ErrValidation = errors.New("invalid reminder")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}

	return false
}

type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryInvoice   Category = "invoice"
	CategoryPayment   Category = "payment"
	CategoryTechnical Category = "technical"
	CategoryUrgent    Category = "urgent"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryInvoice, CategoryPayment, CategoryTechnical, CategoryUrgent:
		return true
	}

	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusRead     Status = "read"
	StatusResolved Status = "resolved"
)

// Reminder is a message from a user to the admins, optionally about one invoice.
type Reminder struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Message    string
	Priority   Priority
	Category   Category
	Status     Status
	InvoiceID  *uuid.UUID
	AdminNotes string
	ReadAt     *time.Time
	ResolvedAt *time.Time
	OwnerName  string // Loaded via JOIN
	OwnerEmail string // Loaded via JOIN
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
