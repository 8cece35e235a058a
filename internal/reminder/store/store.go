package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (*reminder.Reminder, error) {
	var r reminder.Reminder

	var priority, category, status string

	var notes, ownerName, ownerEmail sql.NullString

	var readAt, resolvedAt sql.NullTime

	if err := s.Scan(
		&r.ID, &r.OwnerID, &r.Title, &r.Message, &priority, &category, &status,
		&r.InvoiceID, &notes, &readAt, &resolvedAt, &r.CreatedAt, &r.UpdatedAt,
		&ownerName, &ownerEmail,
	); err != nil {
		return nil, err
	}

	r.Priority = reminder.Priority(priority)
	r.Category = reminder.Category(category)
	r.Status = reminder.Status(status)
	r.AdminNotes = notes.String
	r.OwnerName = ownerName.String
	r.OwnerEmail = ownerEmail.String

	if readAt.Valid {
		r.ReadAt = &readAt.Time
	}

	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}

	return &r, nil
}

const selectReminder = `
	SELECT r.id, r.user_id, r.title, r.message, r.priority, r.category, r.status,
		r.invoice_id, r.admin_notes, r.read_at, r.resolved_at, r.created_at, r.updated_at,
		p.full_name, p.email
	FROM reminders r
	LEFT JOIN profiles p ON r.user_id = p.id`

func (s *Store) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	query := `
		INSERT INTO reminders (user_id, title, message, priority, category, status, invoice_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		r.OwnerID, r.Title, r.Message, r.Priority, r.Category, r.Status, r.InvoiceID,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}

	return nil
}

func (s *Store) GetReminder(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	r, err := scanReminder(s.db.QueryRowContext(ctx, selectReminder+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reminder.ErrNotFound
		}

		return nil, fmt.Errorf("getting reminder: %w", err)
	}

	return r, nil
}

func (s *Store) ListReminders(ctx context.Context, filter reminder.ListFilter) ([]*reminder.Reminder, error) {
	query := selectReminder + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND r.user_id = $%d", argIdx)

		args = append(args, *filter.OwnerID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND r.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY r.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()

	var out []*reminder.Reminder

	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminder rows: %w", err)
	}

	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status reminder.Status, at time.Time) (*reminder.Reminder, error) {
	var query string

	switch status {
	case reminder.StatusRead:
		query = `UPDATE reminders SET status = $1, read_at = $2, updated_at = NOW() WHERE id = $3`
	case reminder.StatusResolved:
		query = `UPDATE reminders SET status = $1, resolved_at = $2, updated_at = NOW() WHERE id = $3`
	default:
		return nil, fmt.Errorf("%w: cannot set status %q", reminder.ErrValidation, status)
	}

	res, err := s.db.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return nil, fmt.Errorf("updating reminder status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, reminder.ErrNotFound
	}

	return s.GetReminder(ctx, id)
}

func (s *Store) SetNotes(ctx context.Context, id uuid.UUID, notes string) (*reminder.Reminder, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET admin_notes = $1, updated_at = NOW() WHERE id = $2`,
		sql.NullString{String: notes, Valid: notes != ""}, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating reminder notes: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, reminder.ErrNotFound
	}

	return s.GetReminder(ctx, id)
}
