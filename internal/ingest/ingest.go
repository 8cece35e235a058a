// Package ingest turns an uploaded invoice document into a pending invoice.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/category"
	"github.com/Apurv-15/ai-invoice-track/internal/extract"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
)

const MaxFileSize = 10 << 20

var (
	ErrInvalidFileType = errors.New("invalid file type: only PNG, JPEG and PDF are accepted")
	ErrFileTooLarge    = errors.New("file too large: the limit is 10 MiB")
)

var allowedTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"application/pdf": true,
}

const (
	placeholderVendor      = "Unknown Vendor"
	placeholderDescription = "Please edit this invoice with correct details"
)

type Renderer interface {
	FirstPage(ctx context.Context, data []byte, contentType string) ([]byte, string, error)
}

type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (extract.Fields, error)
}

type RuleSuggester interface {
	Suggest(ctx context.Context, vendor string) (*matching.Rule, error)
}

type CategoryFinder interface {
	FindByName(ctx context.Context, name string) (*category.Category, error)
}

type InvoiceCreator interface {
	Create(ctx context.Context, params invoice.CreateParams) (*invoice.Result, error)
}

type Service struct {
	blobs      blob.Store
	renderer   Renderer
	extractor  Extractor
	rules      RuleSuggester
	categories CategoryFinder
	invoices   InvoiceCreator
	log        *slog.Logger
	now        func() time.Time
}

type Deps struct {
	Blobs      blob.Store
	Renderer   Renderer
	Extractor  Extractor // nil disables extraction; uploads become placeholder invoices
	Rules      RuleSuggester
	Categories CategoryFinder
	Invoices   InvoiceCreator
	Logger     *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		blobs:      d.Blobs,
		renderer:   d.Renderer,
		extractor:  d.Extractor,
		rules:      d.Rules,
		categories: d.Categories,
		invoices:   d.Invoices,
		log:        logger,
		now:        time.Now,
	}
}

type Upload struct {
	OwnerID     uuid.UUID
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate checks the declared type and size of an upload.
func Validate(contentType string, size int64) error {
	if !allowedTypes[contentType] {
		return fmt.Errorf("%w (got %q)", ErrInvalidFileType, contentType)
	}

	if size > MaxFileSize {
		return ErrFileTooLarge
	}

	return nil
}

// Ingest stores the document, extracts its fields and creates a pending
// invoice. The stored document is removed again when no invoice results.
func (s *Service) Ingest(ctx context.Context, up Upload) (*invoice.Result, error) {
	if err := Validate(up.ContentType, up.Size); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	now := s.now()
	key := blob.DocumentKey(up.OwnerID, now, up.ContentType)

	uri, err := s.blobs.Put(ctx, key, up.ContentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	params, err := s.params(ctx, up, data, uri, now)
	if err != nil {
		s.discard(uri)
		return nil, err
	}

	res, err := s.invoices.Create(ctx, params)
	if err != nil {
		s.discard(uri)
		return nil, err
	}

	if res.Conflict != nil {
		s.discard(uri)
	}

	return res, nil
}

func (s *Service) params(ctx context.Context, up Upload, data []byte, uri string, now time.Time) (invoice.CreateParams, error) {
	if s.extractor == nil {
		s.log.Info("ingest.placeholder", "owner", up.OwnerID, "file", uri)

		return invoice.CreateParams{
			OwnerID:       up.OwnerID,
			InvoiceNumber: "INV-" + strconv.FormatInt(now.UnixMilli(), 10),
			Vendor:        placeholderVendor,
			Date:          now.UTC().Truncate(24 * time.Hour),
			Amount:        decimal.Zero,
			Description:   placeholderDescription,
			FileURL:       uri,
		}, nil
	}

	image, mime, err := s.renderer.FirstPage(ctx, data, up.ContentType)
	if err != nil {
		return invoice.CreateParams{}, fmt.Errorf("rendering document: %w", err)
	}

	fields, err := s.extractor.Extract(ctx, image, mime)
	if err != nil {
		return invoice.CreateParams{}, fmt.Errorf("extracting invoice data: %w", err)
	}

	date, err := fields.ParsedDate()
	if err != nil {
		return invoice.CreateParams{}, fmt.Errorf("%w: date %q", extract.ErrInvalidResponse, fields.Date)
	}

	params := invoice.CreateParams{
		OwnerID:       up.OwnerID,
		InvoiceNumber: fields.InvoiceNumber,
		Vendor:        fields.Vendor,
		Date:          date,
		Amount:        fields.Amount,
		Description:   fields.Description,
		FileURL:       uri,
	}

	params.CategoryID, params.CategoryConfidence = s.categorize(ctx, fields)

	return params, nil
}

// categorize prefers an admin-taught vendor rule over the model's guess.
// Lookup failures leave the invoice uncategorized.
func (s *Service) categorize(ctx context.Context, fields extract.Fields) (*uuid.UUID, *float64) {
	if s.rules != nil {
		rule, err := s.rules.Suggest(ctx, fields.Vendor)
		if err != nil {
			s.log.Warn("failed to match vendor rule", "vendor", fields.Vendor, "error", err)
		} else if rule != nil {
			return &rule.CategoryID, new(1.0)
		}
	}

	if s.categories == nil {
		return nil, nil
	}

	c, err := s.categories.FindByName(ctx, fields.Category)
	if err != nil {
		s.log.Warn("failed to resolve category", "category", fields.Category, "error", err)
		return nil, nil
	}

	confidence := fields.Confidence

	return &c.ID, &confidence
}

func (s *Service) discard(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.blobs.Delete(ctx, uri); err != nil {
		s.log.Error("failed to delete orphaned document", "uri", uri, "error", err)
	}
}
