package matching

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/", h.list)
		r.Post("/", h.learn)
	})
}

type ruleResponse struct {
	ID           uuid.UUID `json:"id"`
	Pattern      string    `json:"vendor_pattern"`
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRuleResponse(rule *matching.Rule) ruleResponse {
	return ruleResponse{
		ID:           rule.ID,
		Pattern:      rule.Pattern,
		CategoryID:   rule.CategoryID,
		CategoryName: rule.CategoryName,
		CreatedAt:    rule.CreatedAt,
	}
}

type suggestResponse struct {
	Vendor       string     `json:"vendor"`
	CategoryID   *uuid.UUID `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	Pattern      string     `json:"vendor_pattern,omitempty"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	vendor := r.URL.Query().Get("vendor")
	if vendor == "" {
		http.Error(w, "vendor query parameter is required", http.StatusBadRequest)
		return
	}

	rule, err := h.svc.Suggest(r.Context(), vendor)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := suggestResponse{Vendor: vendor}
	if rule != nil {
		resp.CategoryID = &rule.CategoryID
		resp.CategoryName = rule.CategoryName
		resp.Pattern = rule.Pattern
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}

	respond.JSON(w, http.StatusOK, resp)
}

type learnRequest struct {
	Pattern    string    `json:"vendor_pattern"`
	CategoryID uuid.UUID `json:"category_id"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if req.CategoryID == uuid.Nil {
		http.Error(w, "vendor_pattern and category_id are required", http.StatusBadRequest)
		return
	}

	rule, err := h.svc.Learn(r.Context(), req.Pattern, req.CategoryID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toRuleResponse(rule))
}
