// Package respond writes JSON responses and maps domain errors to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/category"
	"github.com/Apurv-15/ai-invoice-track/internal/extract"
	"github.com/Apurv-15/ai-invoice-track/internal/ingest"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, invoice.ErrValidation),
		errors.Is(err, invoice.ErrMissingReason),
		errors.Is(err, reminder.ErrValidation),
		errors.Is(err, category.ErrValidation),
		errors.Is(err, matching.ErrInvalidPattern),
		errors.Is(err, ingest.ErrInvalidFileType),
		errors.Is(err, ingest.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, reminder.ErrNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, invoice.ErrInvalidTransition),
		errors.Is(err, invoice.ErrNotEditable),
		errors.Is(err, invoice.ErrDuplicateNumber),
		errors.Is(err, category.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, extract.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, extract.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error": "..."}. Unclassified errors are logged and
// reported without detail, except provider failures whose reason is useful
// to the caller.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)

		if !errors.Is(err, extract.ErrUnavailable) && !errors.Is(err, extract.ErrInvalidResponse) {
			msg = "internal error"
		}
	}

	JSON(w, status, errorBody{Error: msg})
}

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}

	return nil
}
