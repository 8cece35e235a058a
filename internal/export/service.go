package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const sheet = "Invoices"

type InvoiceLister interface {
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
}

// Item is one exported invoice and the archive name of its document.
type Item struct {
	Invoice  *invoice.Invoice
	FileName string
}

type Service struct {
	invoices InvoiceLister
	blobs    blob.Store
	logger   *slog.Logger
}

func NewService(invoices InvoiceLister, blobs blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{invoices: invoices, blobs: blobs, logger: logger}
}

// Workbook returns an XLSX workbook listing the invoices matching filter.
func (s *Service) Workbook(ctx context.Context, filter invoice.ListFilter) ([]byte, error) {
	start := time.Now()

	invs, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	items := make([]Item, 0, len(invs))
	for _, inv := range invs {
		items = append(items, Item{Invoice: inv})
	}

	buf, err := workbook(items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok", "rows", len(items), "elapsed_ms", time.Since(start).Milliseconds())

	return buf, nil
}

// Archive streams a zip to w holding invoices.xlsx, summary.txt and every
// stored document under documents/. Documents missing from the blob store are
// noted in the workbook rather than failing the export.
func (s *Service) Archive(ctx context.Context, filter invoice.ListFilter, w io.Writer) error {
	start := time.Now()

	invs, err := s.invoices.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing invoices: %w", err)
	}

	zw := zip.NewWriter(w)

	items := make([]Item, 0, len(invs))
	used := make(map[string]int)

	for _, inv := range invs {
		item := Item{Invoice: inv}

		if inv.FileURL != "" {
			name := uniqueName(used, documentName(inv))

			ok, err := s.copyDocument(ctx, zw, "documents/"+name, inv.FileURL)
			if err != nil {
				zw.Close()
				return fmt.Errorf("adding document for invoice %s: %w", inv.ID, err)
			}

			if ok {
				item.FileName = name
			}
		}

		items = append(items, item)
	}

	book, err := workbook(items)
	if err != nil {
		zw.Close()
		return err
	}

	if err := writeEntry(zw, "invoices.xlsx", book); err != nil {
		zw.Close()
		return err
	}

	if err := writeEntry(zw, "summary.txt", []byte(Summary(items))); err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	s.logger.Info("export.zip.ok", "rows", len(items), "elapsed_ms", time.Since(start).Milliseconds())

	return nil
}

func (s *Service) copyDocument(ctx context.Context, zw *zip.Writer, name, uri string) (bool, error) {
	rc, err := s.blobs.Open(ctx, uri)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidURI) {
			s.logger.Warn("export.document.missing", "uri", uri, "error", err)
			return false, nil
		}

		return false, err
	}
	defer rc.Close()

	zf, err := zw.Create(name)
	if err != nil {
		return false, err
	}

	if _, err := io.Copy(zf, rc); err != nil {
		return false, err
	}

	return true, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	zf, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}

	if _, err := zf.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	return nil
}

var headers = []any{
	"Invoice Number", "Vendor", "Date", "Amount", "Status", "Category",
	"Submitted By", "Email", "Description", "Rejection Reason", "Created At", "Document",
}

func workbook(items []Item) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}

	_ = f.SetCellStyle(sheet, "A1", "L1", bold)

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}

	for i, item := range items {
		row := i + 2

		vals := rowValues(item)

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", row, err)
		}

		amountCell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(sheet, amountCell, amountCell, money)
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "C", "E", 14)
	_ = f.SetColWidth(sheet, "F", "H", 22)
	_ = f.SetColWidth(sheet, "I", "J", 40)
	_ = f.SetColWidth(sheet, "K", "K", 20)
	_ = f.SetColWidth(sheet, "L", "L", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	return buf.Bytes(), nil
}

func rowValues(item Item) []any {
	inv := item.Invoice

	var category, owner, email string
	if inv.Category != nil {
		category = inv.Category.Name
	}

	if inv.Owner != nil {
		owner, email = inv.Owner.FullName, inv.Owner.Email
	}

	amount, _ := inv.Amount.Float64()

	return []any{
		inv.InvoiceNumber,
		inv.Vendor,
		inv.Date.Format(time.DateOnly),
		amount,
		string(inv.Status),
		category,
		owner,
		email,
		inv.Description,
		inv.RejectionReason,
		inv.CreatedAt.UTC().Format("2006-01-02 15:04"),
		item.FileName,
	}
}

// documentName builds YYYYMMDD_<number>_<vendor>.<ext> from the invoice.
func documentName(inv *invoice.Invoice) string {
	ext := path.Ext(blob.Name(inv.FileURL))
	if ext == "" {
		ext = ".pdf"
	}

	return fmt.Sprintf("%s_%s_%s%s", inv.Date.Format("20060102"), safe(inv.InvoiceNumber), safe(inv.Vendor), ext)
}

func safe(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, s)
}

func uniqueName(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1

	if n == 0 {
		return name
	}

	ext := path.Ext(name)

	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}

// Summary renders one line per exported invoice, suitable for pasting into
// an email to an accountant.
func Summary(items []Item) string {
	var sb bytes.Buffer

	for _, item := range items {
		inv := item.Invoice

		file := "No document"
		if item.FileName != "" {
			file = item.FileName
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s | %s | %s\n",
			inv.Date.Format(time.DateOnly), inv.InvoiceNumber, inv.Vendor, inv.Amount.StringFixed(2), inv.Status, file)
	}

	return sb.String()
}
