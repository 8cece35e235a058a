package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type fakeLister struct {
	invs []*invoice.Invoice
	err  error
	got  invoice.ListFilter
}

func (f *fakeLister) List(_ context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	f.got = filter
	return f.invs, f.err
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func putDoc(t *testing.T, store blob.Store, key, body string) string {
	t.Helper()

	uri, err := store.Put(context.Background(), key, "application/pdf", strings.NewReader(body))
	require.NoError(t, err)

	return uri
}

func fixtures(t *testing.T) (*blob.Local, []*invoice.Invoice) {
	t.Helper()

	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	owner := &invoice.Owner{ID: uuid.New(), FullName: "Ana Costa", Email: "ana@example.com"}

	invs := []*invoice.Invoice{
		{
			ID:            uuid.New(),
			InvoiceNumber: "INV/001",
			Vendor:        "Acme Corp",
			Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			Amount:        decimal.RequireFromString("1250.50"),
			Status:        invoice.StatusApproved,
			Category:      &invoice.Category{Name: "Software"},
			Owner:         owner,
			FileURL:       putDoc(t, store, "invoice-documents/a/1.pdf", "first pdf"),
		},
		{
			ID:              uuid.New(),
			InvoiceNumber:   "INV-002",
			Vendor:          "Cab Co",
			Date:            time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
			Amount:          decimal.RequireFromString("42"),
			Status:          invoice.StatusRejected,
			RejectionReason: "Personal trip",
			Owner:           owner,
			FileURL:         "local://invoice-documents/a/missing.png",
		},
		{
			ID:            uuid.New(),
			InvoiceNumber: "INV-003",
			Vendor:        "Paper Ltd",
			Date:          time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC),
			Amount:        decimal.RequireFromString("9.99"),
			Status:        invoice.StatusPending,
		},
	}

	return store, invs
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string][]byte)

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		files[f.Name] = body
	}

	return files
}

func TestService_Workbook(t *testing.T) {
	store, invs := fixtures(t)
	lister := &fakeLister{invs: invs}
	svc := NewService(lister, store, quiet())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := svc.Workbook(context.Background(), invoice.ListFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, &start, lister.got.StartDate)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Invoice Number", rows[0][0])
	assert.Equal(t, "Document", rows[0][11])

	assert.Equal(t, "INV/001", rows[1][0])
	assert.Equal(t, "Acme Corp", rows[1][1])
	assert.Equal(t, "2026-01-15", rows[1][2])
	assert.Equal(t, "approved", rows[1][4])
	assert.Equal(t, "Software", rows[1][5])
	assert.Equal(t, "Ana Costa", rows[1][6])
	assert.Equal(t, "Personal trip", rows[2][9])

	raw, err := f.GetCellValue(sheet, "D2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1250.5", raw)
}

func TestService_Archive(t *testing.T) {
	store, invs := fixtures(t)
	svc := NewService(&fakeLister{invs: invs}, store, quiet())

	var buf bytes.Buffer
	require.NoError(t, svc.Archive(context.Background(), invoice.ListFilter{}, &buf))

	files := readZip(t, buf.Bytes())

	assert.Equal(t, "first pdf", string(files["documents/20260115_INV_001_Acme_Corp.pdf"]))
	assert.Contains(t, files, "invoices.xlsx")
	assert.Len(t, files, 3)

	summary := string(files["summary.txt"])
	assert.Contains(t, summary, "* 2026-01-15 | INV/001 | Acme Corp | 1250.50 | approved | 20260115_INV_001_Acme_Corp.pdf\n")
	assert.Contains(t, summary, "* 2026-01-16 | INV-002 | Cab Co | 42.00 | rejected | No document\n")
	assert.Contains(t, summary, "* 2026-01-17 | INV-003 | Paper Ltd | 9.99 | pending | No document\n")
}

func TestService_Archive_ListError(t *testing.T) {
	svc := NewService(&fakeLister{err: errors.New("db down")}, nil, quiet())

	err := svc.Archive(context.Background(), invoice.ListFilter{}, io.Discard)
	assert.ErrorContains(t, err, "db down")
}

func TestUniqueName(t *testing.T) {
	used := make(map[string]int)

	assert.Equal(t, "a.pdf", uniqueName(used, "a.pdf"))
	assert.Equal(t, "a_2.pdf", uniqueName(used, "a.pdf"))
	assert.Equal(t, "a_3.pdf", uniqueName(used, "a.pdf"))
	assert.Equal(t, "b.png", uniqueName(used, "b.png"))
}
