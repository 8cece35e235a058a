package importer

import (
	"io"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type Format string

const (
	FormatCSV Format = "csv"
)

// Importer turns an uploaded file into invoice rows for one owner.
type Importer interface {
	Parse(r io.Reader) ([]invoice.CreateParams, error)
}
