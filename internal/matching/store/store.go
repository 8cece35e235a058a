package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectRule = `
	SELECT r.id, r.raw_pattern, r.category_id, c.name, r.created_at
	FROM vendor_category_rules r
	JOIN invoice_categories c ON r.category_id = c.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*matching.Rule, error) {
	var r matching.Rule
	if err := s.Scan(&r.ID, &r.Pattern, &r.CategoryID, &r.CategoryName, &r.CreatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *Store) FindMatch(ctx context.Context, vendor string) (*matching.Rule, error) {
	query := selectRule + `
		WHERE $1 ILIKE '%' || r.raw_pattern || '%'
		ORDER BY LENGTH(r.raw_pattern) DESC, r.created_at DESC
		LIMIT 1
	`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, vendor))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return rule, nil
}

func (s *Store) CreateRule(ctx context.Context, pattern string, categoryID uuid.UUID) (*matching.Rule, error) {
	query := `
		WITH inserted AS (
			INSERT INTO vendor_category_rules (raw_pattern, category_id, created_at)
			VALUES ($1, $2, NOW())
			RETURNING id, raw_pattern, category_id, created_at
		)
		SELECT i.id, i.raw_pattern, i.category_id, c.name, i.created_at
		FROM inserted i
		JOIN invoice_categories c ON i.category_id = c.id
	`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, pattern, categoryID))
	if err != nil {
		return nil, fmt.Errorf("creating rule: %w", err)
	}

	return rule, nil
}

func (s *Store) ListRules(ctx context.Context) ([]*matching.Rule, error) {
	rows, err := s.db.QueryContext(ctx, selectRule+` ORDER BY c.name, r.raw_pattern`)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []*matching.Rule

	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		rules = append(rules, r)
	}

	return rules, rows.Err()
}
