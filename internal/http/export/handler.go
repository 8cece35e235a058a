package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Apurv-15/ai-invoice-track/internal/export"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.workbook)
	r.Post("/download", h.download)
}

// exportRequest narrows the export. An empty body exports everything.
type exportRequest struct {
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Status    invoice.Status `json:"status,omitempty"`
}

func (req exportRequest) filter() (invoice.ListFilter, error) {
	var f invoice.ListFilter

	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{req.StartDate, &f.StartDate}, {req.EndDate, &f.EndDate}} {
		if d.raw == "" {
			continue
		}

		t, err := time.Parse(time.DateOnly, d.raw)
		if err != nil {
			return f, fmt.Errorf("%w: dates must be YYYY-MM-DD", respond.ErrBadRequest)
		}

		*d.dst = &t
	}

	if req.Status != "" {
		if !req.Status.Valid() {
			return f, fmt.Errorf("%w: unknown status %q", respond.ErrBadRequest, req.Status)
		}

		f.Status = &req.Status
	}

	return f, nil
}

func decodeFilter(r *http.Request) (invoice.ListFilter, error) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return invoice.ListFilter{}, errors.Join(respond.ErrBadRequest, err)
	}

	return req.filter()
}

func (h *Handler) workbook(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	book, err := h.svc.Workbook(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"invoices_%s.xlsx\"", h.now().Format("20060102")))

	if _, err := w.Write(book); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}

// download buffers the archive so that a failure halfway can still be
// reported with a proper status.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Archive(r.Context(), filter, &buf); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"export_%s.zip\"", h.now().Format("20060102")))

	if _, err := io.Copy(w, &buf); err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}
