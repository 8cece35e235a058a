package analytics

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/analytics"
	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
)

type Handler struct {
	svc *analytics.Service
}

func NewHandler(svc *analytics.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Use(auth.RequireAdmin)
	r.Get("/", h.summary)
}

type categoryTotal struct {
	Name  string      `json:"name"`
	Color string      `json:"color"`
	Total json.Number `json:"total"`
}

type ownerTotal struct {
	UserID uuid.UUID   `json:"user_id"`
	Name   string      `json:"name"`
	Total  json.Number `json:"total"`
}

type monthTotal struct {
	Month string      `json:"month"`
	Total json.Number `json:"total"`
}

type summaryResponse struct {
	Window        string          `json:"window"`
	TotalInvoices int             `json:"total_invoices"`
	TotalSpending json.Number     `json:"total_spending"`
	AverageAmount json.Number     `json:"average_amount"`
	PendingCount  int             `json:"pending_count"`
	TotalUsers    int             `json:"total_users"`
	Categories    []categoryTotal `json:"categories"`
	TopUsers      []ownerTotal    `json:"top_users"`
	Monthly       []monthTotal    `json:"monthly"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := summaryResponse{
		Window:        s.Window,
		TotalInvoices: s.InvoiceCount,
		TotalSpending: json.Number(s.TotalSpending.StringFixed(2)),
		AverageAmount: json.Number(s.AverageAmount.StringFixed(2)),
		PendingCount:  s.PendingCount,
		TotalUsers:    s.TotalUsers,
		Categories:    make([]categoryTotal, 0, len(s.Categories)),
		TopUsers:      make([]ownerTotal, 0, len(s.TopOwners)),
		Monthly:       make([]monthTotal, 0, len(s.Monthly)),
	}

	for _, c := range s.Categories {
		resp.Categories = append(resp.Categories, categoryTotal{
			Name:  c.Name,
			Color: c.Color,
			Total: json.Number(c.Total.StringFixed(2)),
		})
	}

	for _, o := range s.TopOwners {
		resp.TopUsers = append(resp.TopUsers, ownerTotal{
			UserID: o.OwnerID,
			Name:   o.Name,
			Total:  json.Number(o.Total.StringFixed(2)),
		})
	}

	for _, m := range s.Monthly {
		resp.Monthly = append(resp.Monthly, monthTotal{
			Month: fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)),
			Total: json.Number(m.Total.StringFixed(2)),
		})
	}

	respond.JSON(w, http.StatusOK, resp)
}
