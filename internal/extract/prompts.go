package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const extractSystemPrompt = "You are an expert invoice data extraction assistant. " +
	"Extract information accurately and categorize based on vendor and items purchased."

const categorizeSystemPrompt = "You are an invoice categorization expert. Always respond with structured data."

func extractPrompt() string {
	return `Read this invoice image and extract:
- Invoice number (labelled "Invoice #", "Invoice No", "Bill No" or similar)
- Vendor: the business issuing the invoice
- Date of the invoice as YYYY-MM-DD
- Total amount as a plain number without currency symbols
- Description: a short summary of what was bought
- Category: exactly one of ` + strings.Join(Categories, ", ") + `

Decide the category from the vendor first (airlines, hotels and ride-sharing are Travel; cloud and
software companies are Software; telecom and energy providers are Utilities; restaurants are
Meals & Entertainment; consulting, legal and accounting firms are Professional Services), then from the
items on the invoice, then from logos and branding. Use Other when nothing fits.

Confidence: 0.9-1.0 for an unambiguous vendor or product, 0.7-0.8 for good indicators,
0.5-0.6 for partial indicators, 0.2-0.4 for a best guess and below 0.2 when undeterminable.`
}

func categorizePrompt(vendor, description string, amount decimal.Decimal) string {
	if strings.TrimSpace(description) == "" {
		description = "N/A"
	}

	return fmt.Sprintf(`Categorize this invoice into exactly one of: %s.

Vendor: %s
Description: %s
Amount: %s

Return the category name and a confidence score between 0 and 1.`,
		strings.Join(Categories, ", "), vendor, description, amount.StringFixed(2))
}
