package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=reminder
type Repository interface {
	CreateReminder(ctx context.Context, r *Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (*Reminder, error)
	ListReminders(ctx context.Context, filter ListFilter) ([]*Reminder, error)
	// SetStatus stamps the timestamp column that belongs to status.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*Reminder, error)
	SetNotes(ctx context.Context, id uuid.UUID, notes string) (*Reminder, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type SendParams struct {
	OwnerID   uuid.UUID
	Title     string
	Message   string
	Priority  Priority
	Category  Category
	InvoiceID *uuid.UUID
}

type ListFilter struct {
	OwnerID *uuid.UUID
	Status  *Status
}

func (s *Service) Send(ctx context.Context, params SendParams) (*Reminder, error) {
	title := strings.TrimSpace(params.Title)
	message := strings.TrimSpace(params.Message)

	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	if params.Priority == "" {
		params.Priority = PriorityMedium
	}

	if !params.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, params.Priority)
	}

	if params.Category == "" {
		params.Category = CategoryGeneral
	}

	if !params.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, params.Category)
	}

	r := &Reminder{
		OwnerID:   params.OwnerID,
		Title:     title,
		Message:   message,
		Priority:  params.Priority,
		Category:  params.Category,
		Status:    StatusPending,
		InvoiceID: params.InvoiceID,
	}

	if err := s.repo.CreateReminder(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return s.repo.GetReminder(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Reminder, error) {
	return s.repo.ListReminders(ctx, filter)
}

// MarkRead and MarkResolved do not look at the current status: an admin may
// resolve a reminder that was never read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return s.repo.SetStatus(ctx, id, StatusRead, s.now())
}

func (s *Service) MarkResolved(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return s.repo.SetStatus(ctx, id, StatusResolved, s.now())
}

func (s *Service) AddNotes(ctx context.Context, id uuid.UUID, notes string) (*Reminder, error) {
	return s.repo.SetNotes(ctx, id, strings.TrimSpace(notes))
}
