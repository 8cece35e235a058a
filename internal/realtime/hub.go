// Package realtime fans database change notifications out to in-process
// subscribers.
package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/metrics"
)

const (
	TableInvoices   = "invoices"
	TableReminders  = "reminders"
	TableCategories = "invoice_categories"
)

// Change describes one row written to a watched table.
type Change struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status,omitempty"`
}

// Filter selects changes by table and, optionally, by the row's status.
type Filter struct {
	Table  string
	Status string
}

func (f Filter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}

	return f.Status == "" || f.Status == c.Status
}

// Handle identifies a subscription. The zero Handle is never issued.
type Handle uint64

type subscription struct {
	filter Filter
	fn     func(Change)
}

// Hub delivers each published change to every matching subscriber. Every
// delivery runs on its own goroutine, so a slow callback never delays others.
type Hub struct {
	mu   sync.RWMutex
	subs map[Handle]subscription
	next Handle
	wg   sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Handle]subscription)}
}

func (h *Hub) Subscribe(filter Filter, fn func(Change)) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.subs[h.next] = subscription{filter: filter, fn: fn}
	metrics.RealtimeSubscribers.Inc()

	return h.next
}

// Unsubscribe releases a subscription. Once it returns no new deliveries to
// the handle are started. Releasing an unknown or released handle is a no-op.
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[handle]; !ok {
		return
	}

	delete(h.subs, handle)
	metrics.RealtimeSubscribers.Dec()
}

func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Matches(c) {
			continue
		}

		h.wg.Add(1)

		go func(fn func(Change)) {
			defer h.wg.Done()
			fn(c)
		}(sub.fn)
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Wait blocks until every delivery started so far has returned.
func (h *Hub) Wait() {
	h.wg.Wait()
}
