package invoice

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

type invoiceResponse struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"user_id"`
	InvoiceNumber      string            `json:"invoice_number"`
	Vendor             string            `json:"vendor"`
	Date               string            `json:"date"`
	Amount             json.Number       `json:"amount"`
	Status             invoice.Status    `json:"status"`
	Description        string            `json:"description,omitempty"`
	FileURL            string            `json:"file_url,omitempty"`
	CategoryID         *uuid.UUID        `json:"category_id,omitempty"`
	CategoryConfidence *float64          `json:"category_confidence,omitempty"`
	ReviewedBy         *uuid.UUID        `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time        `json:"reviewed_at,omitempty"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	Category           *categoryResponse `json:"category,omitempty"`
	Profile            *profileResponse  `json:"profiles,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type categoryResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

type profileResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// conflictResponse is the 409 body for a duplicate invoice number.
type conflictResponse struct {
	Error                  string           `json:"error"`
	AttemptedInvoiceNumber string           `json:"attempted_invoice_number"`
	Existing               *invoiceResponse `json:"existing,omitempty"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:                 inv.ID,
		UserID:             inv.OwnerID,
		InvoiceNumber:      inv.InvoiceNumber,
		Vendor:             inv.Vendor,
		Date:               inv.Date.Format(time.DateOnly),
		Amount:             json.Number(inv.Amount.StringFixed(2)),
		Status:             inv.Status,
		Description:        inv.Description,
		FileURL:            inv.FileURL,
		CategoryID:         inv.CategoryID,
		CategoryConfidence: inv.CategoryConfidence,
		ReviewedBy:         inv.ReviewerID,
		ReviewedAt:         inv.ReviewedAt,
		RejectionReason:    inv.RejectionReason,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}

	if inv.Category != nil {
		resp.Category = &categoryResponse{ID: inv.Category.ID, Name: inv.Category.Name, Color: inv.Category.Color}
	}

	if inv.Owner != nil {
		resp.Profile = &profileResponse{FullName: inv.Owner.FullName, Email: inv.Owner.Email}
	}

	return resp
}

func toResponseList(invs []*invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invs))
	for i, inv := range invs {
		resp[i] = toResponse(inv)
	}

	return resp
}

func toConflictResponse(c *invoice.Conflict) conflictResponse {
	resp := conflictResponse{
		Error:                  "duplicate invoice number",
		AttemptedInvoiceNumber: c.AttemptedNumber,
	}

	if c.Existing != nil {
		existing := toResponse(c.Existing)
		resp.Existing = &existing
	}

	return resp
}
