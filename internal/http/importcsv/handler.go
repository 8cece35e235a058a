package importcsv

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/importer"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
)

const dateLayout = time.DateOnly

type Handler struct {
	importSvc  *importer.Service
	invoiceSvc *invoice.Service
	matchSvc   *matching.Service
}

func NewHandler(importSvc *importer.Service, invoiceSvc *invoice.Service, matchSvc *matching.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		invoiceSvc: invoiceSvc,
		matchSvc:   matchSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type invoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        string          `json:"vendor"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Status        invoice.Status  `json:"status"`
}

type importSuccessResponse struct {
	Imported int               `json:"imported"`
	Invoices []invoiceResponse `json:"invoices"`
}

type rowDTO struct {
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        string          `json:"vendor"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO           `json:"incoming"`
	Existing *invoiceResponse `json:"existing,omitempty"`
}

type importConflictResponse struct {
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	Rows []rowDTO `json:"rows"`
}

// importCSV parses the uploaded file and imports it when no row clashes.
// Otherwise it answers 409 listing clean rows next to the conflicts, and the
// client confirms the clean subset through /confirm.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respond.Error(w, r, fmt.Errorf("%w: failed to parse form: %w", respond.ErrBadRequest, err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, fmt.Errorf("%w: file field is required", respond.ErrBadRequest))
		return
	}
	defer file.Close()

	caller, _ := auth.FromContext(r.Context())

	params, err := h.importSvc.Import(importer.FormatCSV, caller.UserID, file)
	if err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))
		return
	}

	h.suggestCategories(r, params)

	result, err := h.invoiceSvc.ImportBatch(r.Context(), caller.UserID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}

		for _, p := range result.New {
			resp.New = append(resp.New, toRowDTO(p))
		}

		for _, c := range result.Conflicts {
			dto := conflictDTO{Incoming: toRowDTO(c.Incoming)}
			if c.Existing != nil {
				dto.Existing = new(toInvoiceResponse(c.Existing))
			}

			resp.Conflicts = append(resp.Conflicts, dto)
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// suggestCategories fills in categories from the vendor rules. Lookup
// failures leave the row uncategorized.
func (h *Handler) suggestCategories(r *http.Request, params []invoice.CreateParams) {
	for i, p := range params {
		rule, err := h.matchSvc.Suggest(r.Context(), p.Vendor)
		if err != nil || rule == nil {
			continue
		}

		params[i].CategoryID = &rule.CategoryID
		params[i].CategoryConfidence = new(1.0)
	}
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	caller, _ := auth.FromContext(r.Context())

	params := make([]invoice.CreateParams, 0, len(req.Rows))

	for i, row := range req.Rows {
		p, err := row.params(caller.UserID)
		if err != nil {
			respond.Error(w, r, fmt.Errorf("%w: row %d: %w", respond.ErrBadRequest, i+1, err))
			return
		}

		params = append(params, p)
	}

	invs, err := h.invoiceSvc.CreateBatch(r.Context(), caller.UserID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(invs))
}

func (d rowDTO) params(ownerID uuid.UUID) (invoice.CreateParams, error) {
	date, err := parseDate(d.Date)
	if err != nil {
		return invoice.CreateParams{}, err
	}

	p := invoice.CreateParams{
		OwnerID:       ownerID,
		InvoiceNumber: d.InvoiceNumber,
		Vendor:        d.Vendor,
		Date:          date,
		Amount:        d.Amount,
		Description:   d.Description,
		CategoryID:    d.CategoryID,
	}

	if d.CategoryID != nil {
		p.CategoryConfidence = new(1.0)
	}

	return p, nil
}

func toSuccessResponse(invs []*invoice.Invoice) importSuccessResponse {
	responses := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		responses = append(responses, toInvoiceResponse(inv))
	}

	return importSuccessResponse{
		Imported: len(invs),
		Invoices: responses,
	}
}

func toInvoiceResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Vendor:        inv.Vendor,
		Date:          inv.Date.Format(dateLayout),
		Amount:        inv.Amount,
		Status:        inv.Status,
	}
}

func toRowDTO(p invoice.CreateParams) rowDTO {
	return rowDTO{
		InvoiceNumber: p.InvoiceNumber,
		Vendor:        p.Vendor,
		Date:          p.Date.Format(dateLayout),
		Amount:        p.Amount,
		Description:   p.Description,
		CategoryID:    p.CategoryID,
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}

	return t, nil
}
