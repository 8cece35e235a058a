package invoicecsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/Apurv-15/ai-invoice-track/internal/encoding"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

var ErrNoHeader = errors.New("no invoice header found: expected invoice_number, vendor, date and amount columns")

var dateLayouts = []string{
	time.DateOnly,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// Parser reads invoice CSV files. The delimiter (comma or semicolon) and the
// text encoding are detected; columns may appear in any order.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]invoice.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	var readErr error

	for _, comma := range []rune{';', ','} {
		rows, err := readAll(data, comma)
		if err != nil {
			readErr = err
			continue
		}

		cols, headerIdx, ok := detectHeader(rows)
		if !ok {
			continue
		}

		return parseRows(cols, rows[headerIdx+1:], headerIdx+1)
	}

	if readErr != nil {
		return nil, readErr
	}

	return nil, ErrNoHeader
}

func readAll(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

// detectHeader returns the first row naming every required column.
func detectHeader(rows [][]string) (colIndex, int, bool) {
	for i, row := range rows {
		cols := headerColumns(row)
		if cols.complete() {
			return cols, i, true
		}
	}

	return nil, 0, false
}

// parseRows converts data rows. headerRowNum is the 0-based header position
// in the file and is used for error messages.
func parseRows(cols colIndex, rows [][]string, headerRowNum int) ([]invoice.CreateParams, error) {
	var out []invoice.CreateParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 2

		if blank(row) {
			continue
		}

		number := cellValue(row, cols.get(fieldNumber))
		if number == "" {
			return nil, fmt.Errorf("row %d: missing invoice number", rowNum)
		}

		vendor := cellValue(row, cols.get(fieldVendor))
		if vendor == "" {
			return nil, fmt.Errorf("row %d: missing vendor", rowNum)
		}

		date, err := parseDate(cellValue(row, cols.get(fieldDate)))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		raw := cellValue(row, cols.get(fieldAmount))

		amount, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", rowNum, raw)
		}

		out = append(out, invoice.CreateParams{
			InvoiceNumber: number,
			Vendor:        vendor,
			Date:          date,
			Amount:        amount,
			Description:   cellValue(row, cols.get(fieldDescription)),
		})
	}

	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
