package invoicecsv

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount accepts plain ("1234.56"), European ("1.234,56") and
// English ("1,234.56") notations. When only commas appear the last one is
// the decimal separator. Currency symbols and spaces are ignored.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		i := strings.LastIndex(clean, ",")
		clean = strings.ReplaceAll(clean[:i], ",", "") + "." + clean[i+1:]
	case lastDot > lastComma:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Round(2), nil
}
