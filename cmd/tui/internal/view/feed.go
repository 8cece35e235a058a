package view

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
)

// ChangeMsg carries a change delivered to Feed.
type ChangeMsg struct {
	Feed   *Feed
	Change realtime.Change
}

// Feed is a hub subscription owned by one open screen. Changes that arrive
// while the screen is still handling the previous one are coalesced.
type Feed struct {
	hub    *realtime.Hub
	handle realtime.Handle
	ch     chan realtime.Change
	done   chan struct{}
	once   sync.Once
}

func Watch(hub *realtime.Hub, filter realtime.Filter) *Feed {
	f := &Feed{
		hub:  hub,
		ch:   make(chan realtime.Change, 1),
		done: make(chan struct{}),
	}

	f.handle = hub.Subscribe(filter, func(c realtime.Change) {
		select {
		case f.ch <- c:
		default:
		}
	})

	return f
}

// Next waits for the next change. It yields nil once the feed is closed.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-f.ch:
			return ChangeMsg{Feed: f, Change: c}
		case <-f.done:
			return nil
		}
	}
}

// Close releases the subscription. It is safe to call more than once and on
// a nil Feed.
func (f *Feed) Close() {
	if f == nil {
		return
	}

	f.once.Do(func() {
		f.hub.Unsubscribe(f.handle)
		close(f.done)
	})
}
