// Package functions serves the standalone extraction, categorization and
// digest endpoints under /functions.
package functions

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/digest"
	"github.com/Apurv-15/ai-invoice-track/internal/extract"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
)

var errNotConfigured = errors.New("AI gateway is not configured")

type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (extract.Fields, error)
	Categorize(ctx context.Context, vendor, description string, amount decimal.Decimal) (extract.Categorization, error)
}

type DigestSender interface {
	Send(ctx context.Context, now time.Time) (*digest.Result, error)
}

type Handler struct {
	ai     Extractor
	digest DigestSender
	now    func() time.Time
}

// NewHandler builds the function endpoints. A nil ai makes the extraction
// endpoints answer 500 with a configuration error.
func NewHandler(ai Extractor, digestSvc DigestSender) *Handler {
	return &Handler{ai: ai, digest: digestSvc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/extract-invoice-data", h.extractInvoiceData)
	r.Post("/categorize-invoice", h.categorizeInvoice)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/send-admin-reminder", h.sendAdminReminder)
	})
}

type extractRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// decodeImage accepts bare base64, which is taken as JPEG, or a data URL.
func decodeImage(s string) ([]byte, string, error) {
	mimeType := "image/jpeg"

	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: malformed data URL", respond.ErrBadRequest)
		}

		mimeType = strings.TrimSuffix(meta, ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("%w: imageBase64 is not valid base64", respond.ErrBadRequest)
	}

	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: imageBase64 is required", respond.ErrBadRequest)
	}

	return data, mimeType, nil
}

func (h *Handler) extractInvoiceData(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	image, mimeType, err := decodeImage(req.ImageBase64)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if h.ai == nil {
		respond.JSON(w, http.StatusInternalServerError, map[string]string{"error": errNotConfigured.Error()})
		return
	}

	fields, err := h.ai.Extract(r.Context(), image, mimeType)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, extractResponse{
		InvoiceNumber: fields.InvoiceNumber,
		Vendor:        fields.Vendor,
		Date:          fields.Date,
		Amount:        json.Number(fields.Amount.String()),
		Description:   fields.Description,
		Category:      fields.Category,
		Confidence:    fields.Confidence,
	})
}

// extractResponse mirrors extract.Fields with the amount as a JSON number.
type extractResponse struct {
	InvoiceNumber string      `json:"invoice_number"`
	Vendor        string      `json:"vendor"`
	Date          string      `json:"date"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description,omitempty"`
	Category      string      `json:"category"`
	Confidence    float64     `json:"confidence"`
}

type categorizeRequest struct {
	Vendor      string          `json:"vendor"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type categorizeFailure struct {
	extract.Categorization
	Error string `json:"error"`
}

// categorizeInvoice always carries a usable category: failures answer with
// Other at confidence 0 next to the error.
func (h *Handler) categorizeInvoice(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if h.ai == nil {
		respond.JSON(w, http.StatusInternalServerError, categorizeFailure{extract.Fallback, errNotConfigured.Error()})
		return
	}

	cat, err := h.ai.Categorize(r.Context(), req.Vendor, req.Description, req.Amount)
	if err != nil {
		respond.JSON(w, respond.Status(err), categorizeFailure{extract.Fallback, err.Error()})
		return
	}

	respond.JSON(w, http.StatusOK, cat)
}

func (h *Handler) sendAdminReminder(w http.ResponseWriter, r *http.Request) {
	res, err := h.digest.Send(r.Context(), h.now())
	if err != nil {
		respond.JSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	respond.JSON(w, http.StatusOK, res)
}
