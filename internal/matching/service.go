package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidPattern = errors.New("vendor pattern must have at least 2 characters")

// Rule maps vendors whose name contains Pattern to a category.
type Rule struct {
	ID           uuid.UUID
	Pattern      string
	CategoryID   uuid.UUID
	CategoryName string
	CreatedAt    time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, vendor string) (*Rule, error)
	CreateRule(ctx context.Context, pattern string, categoryID uuid.UUID) (*Rule, error)
	ListRules(ctx context.Context) ([]*Rule, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the rule with the longest pattern contained in vendor,
// compared case-insensitively. It returns nil when no rule matches.
func (s *Service) Suggest(ctx context.Context, vendor string) (*Rule, error) {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return nil, nil
	}

	return s.repo.FindMatch(ctx, vendor)
}

// Learn remembers that vendors matching pattern belong to categoryID.
func (s *Service) Learn(ctx context.Context, pattern string, categoryID uuid.UUID) (*Rule, error) {
	pattern = strings.TrimSpace(pattern)
	if len([]rune(pattern)) < 2 {
		return nil, ErrInvalidPattern
	}

	rule, err := s.repo.CreateRule(ctx, pattern, categoryID)
	if err != nil {
		return nil, fmt.Errorf("learning rule: %w", err)
	}

	return rule, nil
}

func (s *Service) List(ctx context.Context) ([]*Rule, error) {
	return s.repo.ListRules(ctx)
}
