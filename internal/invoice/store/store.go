package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const (
	uniqueViolation        = "23505"
	uniqueNumberConstraint = "invoices_user_id_invoice_number_key"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanInvoice reads an invoice row joined with its category and owner profile.
// Expected column order matches selectInvoiceColumns.
func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var statusStr string

	var description, fileURL, rejection sql.NullString

	var confidence sql.NullFloat64

	var reviewedAt sql.NullTime

	var categoryName, categoryColor sql.NullString

	var ownerName, ownerEmail sql.NullString

	if err := s.Scan(
		&inv.ID, &inv.OwnerID, &inv.InvoiceNumber, &inv.Vendor, &inv.Date, &inv.Amount, &statusStr,
		&description, &fileURL, &inv.CategoryID, &confidence,
		&inv.ReviewerID, &reviewedAt, &rejection,
		&inv.CreatedAt, &inv.UpdatedAt,
		&categoryName, &categoryColor, &ownerName, &ownerEmail,
	); err != nil {
		return nil, err
	}

	inv.Status = invoice.Status(statusStr)
	inv.Description = description.String
	inv.FileURL = fileURL.String
	inv.RejectionReason = rejection.String

	if confidence.Valid {
		inv.CategoryConfidence = &confidence.Float64
	}

	if reviewedAt.Valid {
		inv.ReviewedAt = &reviewedAt.Time
	}

	if inv.CategoryID != nil && categoryName.Valid {
		inv.Category = &invoice.Category{
			ID:    *inv.CategoryID,
			Name:  categoryName.String,
			Color: categoryColor.String,
		}
	}

	if ownerEmail.Valid {
		inv.Owner = &invoice.Owner{
			ID:       inv.OwnerID,
			FullName: ownerName.String,
			Email:    ownerEmail.String,
		}
	}

	return &inv, nil
}

const selectInvoiceColumns = `
	i.id, i.user_id, i.invoice_number, i.vendor, i.date, i.amount, i.status,
	i.description, i.file_url, i.category_id, i.category_confidence,
	i.reviewed_by, i.reviewed_at, i.rejection_reason,
	i.created_at, i.updated_at,
	c.name AS category_name, c.color AS category_color, p.full_name AS owner_name, p.email AS owner_email
`

const fromInvoices = `
	FROM invoices i
	LEFT JOIN invoice_categories c ON i.category_id = c.id
	LEFT JOIN profiles p ON i.user_id = p.id`

// classify maps the unique violation on (user_id, invoice_number) to
// invoice.ErrDuplicateNumber. Drivers that lose the SQLSTATE still carry the
// constraint name in the message text.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation && (pgErr.ConstraintName == "" || pgErr.ConstraintName == uniqueNumberConstraint) {
			return invoice.ErrDuplicateNumber
		}

		return err
	}

	if strings.Contains(err.Error(), uniqueNumberConstraint) {
		return invoice.ErrDuplicateNumber
	}

	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (user_id, invoice_number, vendor, date, amount, status, description, file_url,
			category_id, category_confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.OwnerID,
		inv.InvoiceNumber,
		inv.Vendor,
		inv.Date,
		inv.Amount,
		inv.Status,
		nullString(inv.Description),
		nullString(inv.FileURL),
		inv.CategoryID,
		inv.CategoryConfidence,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", classify(err))
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + fromInvoices + `
		WHERE i.id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) FindByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + fromInvoices + `
		WHERE i.user_id = $1 AND i.invoice_number = $2`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, ownerID, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("finding invoice by number: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + fromInvoices + `
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND i.user_id = $%d", argIdx)

		args = append(args, *filter.OwnerID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND i.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND i.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.CreatedBefore != nil {
		query += fmt.Sprintf(" AND i.created_at < $%d", argIdx)

		args = append(args, *filter.CreatedBefore)
		argIdx++
	}

	if filter.Unreviewed {
		query += " AND i.reviewed_at IS NULL"
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (i.vendor ILIKE $%d OR i.invoice_number ILIKE $%d)", argIdx, argIdx)

		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	query += " ORDER BY i.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invs []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invs, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_number = $1, vendor = $2, date = $3, amount = $4, description = $5,
			category_id = $6, category_confidence = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.InvoiceNumber,
		inv.Vendor,
		inv.Date,
		inv.Amount,
		nullString(inv.Description),
		inv.CategoryID,
		inv.CategoryConfidence,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invoice.ErrNotFound
		}

		return fmt.Errorf("updating invoice: %w", classify(err))
	}

	return nil
}

// Transition is a compare-and-set on the status column so that two reviewers
// acting on the same pending invoice cannot both succeed.
func (s *Store) Transition(ctx context.Context, id uuid.UUID, from invoice.Status, change invoice.StatusChange) (*invoice.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = $1,
			reviewed_by = COALESCE($2::uuid, reviewed_by),
			reviewed_at = COALESCE($3::timestamptz, reviewed_at),
			rejection_reason = COALESCE(NULLIF($4::text, ''), rejection_reason),
			updated_at = NOW()
		WHERE id = $5 AND status = $6
	`

	res, err := s.db.ExecContext(ctx, query,
		change.To,
		change.ReviewerID,
		change.ReviewedAt,
		change.RejectionReason,
		id,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("updating invoice status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating invoice status: %w", err)
	}

	if n == 0 {
		if _, err := s.GetInvoice(ctx, id); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: status is no longer %s", invoice.ErrInvalidTransition, from)
	}

	return s.GetInvoice(ctx, id)
}

// importLockKey derives the advisory lock key that serialises batch imports
// of one owner.
func importLockKey(ownerID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("invoice-import"))
	h.Write([]byte{0})
	h.Write(ownerID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, ownerID uuid.UUID) (invoice.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(ownerID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, ownerID uuid.UUID, numbers []string) ([]*invoice.Invoice, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	query := `SELECT ` + selectInvoiceColumns + fromInvoices + `
		WHERE i.user_id = $1 AND i.invoice_number = ANY($2)
		ORDER BY i.invoice_number ASC`

	rows, err := itx.tx.QueryContext(ctx, query, ownerID, numbers)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		duplicates = append(duplicates, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateInvoices(ctx context.Context, invs []*invoice.Invoice) error {
	query := `
		INSERT INTO invoices (user_id, invoice_number, vendor, date, amount, status, description, file_url,
			category_id, category_confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	for _, inv := range invs {
		err := itx.tx.QueryRowContext(ctx, query,
			inv.OwnerID,
			inv.InvoiceNumber,
			inv.Vendor,
			inv.Date,
			inv.Amount,
			inv.Status,
			nullString(inv.Description),
			nullString(inv.FileURL),
			inv.CategoryID,
			inv.CategoryConfidence,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating invoice %s: %w", inv.InvoiceNumber, classify(err))
		}
	}

	return nil
}
