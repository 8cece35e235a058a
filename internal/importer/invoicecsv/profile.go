package invoicecsv

import "strings"

// field identifies one invoice attribute a CSV column can carry.
type field int

const (
	fieldNumber field = iota
	fieldVendor
	fieldDate
	fieldAmount
	fieldDescription
)

// aliases lists the header spellings accepted for each field. Headers are
// compared after lower-casing and folding spaces and dashes to underscores.
var aliases = map[field][]string{
	fieldNumber:      {"invoice_number", "invoice_no", "invoice", "number", "numero", "número"},
	fieldVendor:      {"vendor", "supplier", "fornecedor"},
	fieldDate:        {"date", "invoice_date", "data"},
	fieldAmount:      {"amount", "total", "montante", "valor"},
	fieldDescription: {"description", "descricao", "descrição", "notes"},
}

// required fields must all be present for a row to be read as the header.
var required = []field{fieldNumber, fieldVendor, fieldDate, fieldAmount}

var lookup = func() map[string]field {
	m := make(map[string]field)

	for f, names := range aliases {
		for _, n := range names {
			m[n] = f
		}
	}

	return m
}()

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(s)

	return s
}

// colIndex maps fields to their column position.
type colIndex map[field]int

func headerColumns(row []string) colIndex {
	cols := make(colIndex)

	for i, cell := range row {
		f, ok := lookup[normalizeHeader(cell)]
		if !ok {
			continue
		}

		if _, seen := cols[f]; !seen {
			cols[f] = i
		}
	}

	return cols
}

func (c colIndex) complete() bool {
	for _, f := range required {
		if _, ok := c[f]; !ok {
			return false
		}
	}

	return true
}

func (c colIndex) get(f field) int {
	if i, ok := c[f]; ok {
		return i
	}

	return -1
}
