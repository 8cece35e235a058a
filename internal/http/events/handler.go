// Package events streams realtime table changes as server-sent events.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Apurv-15/ai-invoice-track/internal/http/respond"
	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
)

// Changes that arrive while a client's buffer is full are dropped.
const bufferSize = 64

type Handler struct {
	hub       *realtime.Hub
	heartbeat time.Duration
}

func NewHandler(hub *realtime.Hub) *Handler {
	return &Handler{hub: hub, heartbeat: 15 * time.Second}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.stream)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := realtime.Filter{Table: q.Get("table"), Status: q.Get("status")}

	switch filter.Table {
	case "", realtime.TableInvoices, realtime.TableReminders, realtime.TableCategories:
	default:
		respond.Error(w, r, fmt.Errorf("%w: unknown table %q", respond.ErrBadRequest, filter.Table))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	changes := make(chan realtime.Change, bufferSize)

	handle := h.hub.Subscribe(filter, func(c realtime.Change) {
		select {
		case changes <- c:
		default:
			slog.Warn("events.dropped", "table", c.Table, "id", c.ID)
		}
	})
	defer h.hub.Unsubscribe(handle)

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-changes:
			if err := writeChange(w, c); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeChange(w io.Writer, c realtime.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Table, data)

	return err
}
