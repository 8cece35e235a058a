package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/ingest"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type Handler struct {
	svc    *invoice.Service
	ingest *ingest.Service
	blobs  blob.Store
}

func NewHandler(svc *invoice.Service, ingestSvc *ingest.Service, blobs blob.Store) *Handler {
	return &Handler{svc: svc, ingest: ingestSvc, blobs: blobs}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/upload", h.upload)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Get("/{id}/document", h.document)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/pay", h.pay)
	})
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", respond.ErrBadRequest)
	}

	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", respond.ErrBadRequest)
	}

	return t, nil
}

// writeResult answers with the invoice, or with 409 and the clashing record.
func writeResult(w http.ResponseWriter, status int, res *invoice.Result) {
	if res.Conflict != nil {
		respond.JSON(w, http.StatusConflict, toConflictResponse(res.Conflict))
		return
	}

	respond.JSON(w, status, toResponse(res.Invoice))
}

type createInvoiceRequest struct {
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        string          `json:"vendor"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.svc.Create(r.Context(), invoice.CreateParams{
		OwnerID:       identity(r).UserID,
		InvoiceNumber: req.InvoiceNumber,
		Vendor:        req.Vendor,
		Date:          date,
		Amount:        req.Amount,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeResult(w, http.StatusCreated, res)
}

// list returns the caller's invoices. Admins see every owner's invoices and
// may narrow by owner_id.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := identity(r)
	q := r.URL.Query()

	filter := invoice.ListFilter{Search: strings.TrimSpace(q.Get("search"))}

	if s := q.Get("status"); s != "" {
		status := invoice.Status(s)
		if !status.Valid() {
			respond.Error(w, r, fmt.Errorf("%w: unknown status %q", respond.ErrBadRequest, s))
			return
		}

		filter.Status = &status
	}

	if s := q.Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := q.Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	switch {
	case !caller.Admin:
		filter.OwnerID = &caller.UserID
	case q.Get("owner_id") != "":
		owner, err := uuid.Parse(q.Get("owner_id"))
		if err != nil {
			respond.Error(w, r, fmt.Errorf("%w: invalid owner_id", respond.ErrBadRequest))
			return
		}

		filter.OwnerID = &owner
	}

	invs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(invs))
}

// visible loads an invoice the caller may see. Other owners' invoices are
// reported as missing to non-admins.
func (h *Handler) visible(r *http.Request) (*invoice.Invoice, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	caller := identity(r)
	if !caller.Admin && inv.OwnerID != caller.UserID {
		return nil, invoice.ErrNotFound
	}

	return inv, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.visible(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(inv))
}

// updateInvoiceRequest is a partial update. A category_id of null clears the
// category; an absent field leaves it unchanged.
type updateInvoiceRequest struct {
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	Date          *string          `json:"date,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    json.RawMessage  `json:"category_id,omitempty"`
}

func (req updateInvoiceRequest) category(params *invoice.UpdateParams) error {
	if len(req.CategoryID) == 0 {
		return nil
	}

	if string(req.CategoryID) == "null" {
		params.ClearCategory = true
		return nil
	}

	var id uuid.UUID
	if err := json.Unmarshal(req.CategoryID, &id); err != nil {
		return fmt.Errorf("%w: invalid category_id", respond.ErrBadRequest)
	}

	params.CategoryID = &id

	return nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateInvoiceRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	params := invoice.UpdateParams{
		InvoiceNumber: req.InvoiceNumber,
		Vendor:        req.Vendor,
		Amount:        req.Amount,
		Description:   req.Description,
	}

	if err := req.category(&params); err != nil {
		respond.Error(w, r, err)
		return
	}

	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		params.Date = &date
	}

	res, err := h.svc.Update(r.Context(), identity(r).UserID, id, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeResult(w, http.StatusOK, res)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	inv, err := h.visible(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if inv.FileURL == "" {
		respond.Error(w, r, blob.ErrNotFound)
		return
	}

	rc, err := h.blobs.Open(r.Context(), inv.FileURL)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer rc.Close()

	name := blob.Name(inv.FileURL)
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream document", "invoice_id", inv.ID, "error", err)
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxFileSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			respond.Error(w, r, ingest.ErrFileTooLarge)
			return
		}

		respond.Error(w, r, fmt.Errorf("%w: file field is required", respond.ErrBadRequest))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}

	res, err := h.ingest.Ingest(r.Context(), ingest.Upload{
		OwnerID:     identity(r).UserID,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeResult(w, http.StatusCreated, res)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.Approve(r.Context(), id, identity(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(inv))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req rejectRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.Reject(r.Context(), id, identity(r).UserID, req.Reason)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.MarkPaid(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(inv))
}
