package reminder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
)

type Handler struct {
	svc *reminder.Service
}

func NewHandler(svc *reminder.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.send)
	r.Get("/", h.list)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/{id}/read", h.markRead)
		r.Post("/{id}/resolve", h.resolve)
		r.Patch("/{id}/notes", h.notes)
	})
}

type sendRequest struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Priority  reminder.Priority `json:"priority"`
	Category  reminder.Category `json:"category"`
	InvoiceID *uuid.UUID        `json:"invoice_id,omitempty"`
}

type reminderResponse struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Priority   reminder.Priority `json:"priority"`
	Category   reminder.Category `json:"category"`
	Status     reminder.Status   `json:"status"`
	InvoiceID  *uuid.UUID        `json:"invoice_id"`
	AdminNotes string            `json:"admin_notes,omitempty"`
	ReadAt     *time.Time        `json:"read_at"`
	ResolvedAt *time.Time        `json:"resolved_at"`
	CreatedAt  time.Time         `json:"created_at"`
	Profiles   *ownerResponse    `json:"profiles,omitempty"`
}

type ownerResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func toResponse(rem *reminder.Reminder) reminderResponse {
	resp := reminderResponse{
		ID:         rem.ID,
		UserID:     rem.OwnerID,
		Title:      rem.Title,
		Message:    rem.Message,
		Priority:   rem.Priority,
		Category:   rem.Category,
		Status:     rem.Status,
		InvoiceID:  rem.InvoiceID,
		AdminNotes: rem.AdminNotes,
		ReadAt:     rem.ReadAt,
		ResolvedAt: rem.ResolvedAt,
		CreatedAt:  rem.CreatedAt,
	}

	if rem.OwnerEmail != "" || rem.OwnerName != "" {
		resp.Profiles = &ownerResponse{FullName: rem.OwnerName, Email: rem.OwnerEmail}
	}

	return resp
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", respond.ErrBadRequest)
	}

	return id, nil
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	caller, _ := auth.FromContext(r.Context())

	rem, err := h.svc.Send(r.Context(), reminder.SendParams{
		OwnerID:   caller.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Priority:  req.Priority,
		Category:  req.Category,
		InvoiceID: req.InvoiceID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(rem))
}

// list returns the caller's reminders, or every reminder for admins.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	var filter reminder.ListFilter
	if !caller.Admin {
		filter.OwnerID = &caller.UserID
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := reminder.Status(s)
		switch status {
		case reminder.StatusPending, reminder.StatusRead, reminder.StatusResolved:
		default:
			respond.Error(w, r, fmt.Errorf("%w: unknown status %q", respond.ErrBadRequest, s))
			return
		}

		filter.Status = &status
	}

	rems, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]reminderResponse, 0, len(rems))
	for _, rem := range rems {
		resp = append(resp, toResponse(rem))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.svc.MarkRead)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.svc.MarkResolved)
}

type notesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

func (h *Handler) notes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req notesRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	rem, err := h.svc.AddNotes(r.Context(), id, req.AdminNotes)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rem))
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error)) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	rem, err := fn(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rem))
}
