package category

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("category not found")
	ErrDuplicateName = errors.New("category name already exists")
	ErrValidation    = errors.New("invalid category")
)

// Other is the category used when nothing better is known.
const Other = "Other"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Category struct {
	ID        uuid.UUID
	Name      string
	Color     string
	Icon      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Params struct {
	Name  string
	Color string
	Icon  string
}

func (p Params) normalize() (Params, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Color = strings.TrimSpace(p.Color)
	p.Icon = strings.TrimSpace(p.Icon)

	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if p.Color == "" {
		p.Color = "#6b7280"
	}

	if !hexColor.MatchString(p.Color) {
		return p, fmt.Errorf("%w: color must be #rrggbb", ErrValidation)
	}

	if p.Icon == "" {
		p.Icon = "folder"
	}

	return p, nil
}

func (s *Service) Create(ctx context.Context, params Params) (*Category, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	c := &Category{Name: params.Name, Color: params.Color, Icon: params.Icon}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params Params) (*Category, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = params.Name
	c.Color = params.Color
	c.Icon = params.Icon

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

// FindByName looks a category up case-insensitively. Unknown names resolve to
// the Other category when it exists.
func (s *Service) FindByName(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = Other
	}

	c, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) && !strings.EqualFold(name, Other) {
		return s.repo.FindByName(ctx, Other)
	}

	return c, err
}
