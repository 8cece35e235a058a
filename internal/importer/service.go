package importer

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/importer/invoicecsv"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatCSV: invoicecsv.NewParser(),
		},
	}
}

// Import parses r and stamps every row with ownerID.
func (s *Service) Import(format Format, ownerID uuid.UUID, r io.Reader) ([]invoice.CreateParams, error) {
	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown import format: %s", format)
	}

	rows, err := importer.Parse(r)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].OwnerID = ownerID
	}

	return rows, nil
}
