package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Period is a preset range of invoice dates.
type Period int

const (
	PeriodThisMonth Period = iota
	PeriodLastMonth
	PeriodLast30Days
	PeriodThisYear
	PeriodAll
	PeriodCustom
)

var periodLabels = map[Period]string{
	PeriodThisMonth:  "This Month",
	PeriodLastMonth:  "Last Month",
	PeriodLast30Days: "Last 30 Days",
	PeriodThisYear:   "This Year",
	PeriodAll:        "All Time",
	PeriodCustom:     "Custom Range",
}

func (p Period) String() string {
	if s, ok := periodLabels[p]; ok {
		return s
	}

	return "Unknown"
}

// Bounds returns the first and last calendar day of p as seen at now.
// PeriodAll and PeriodCustom have no preset bounds.
func (p Period) Bounds(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	firstOfMonth := today.AddDate(0, 0, 1-today.Day())

	switch p {
	case PeriodThisMonth:
		return firstOfMonth, today
	case PeriodLastMonth:
		return firstOfMonth.AddDate(0, -1, 0), firstOfMonth.AddDate(0, 0, -1)
	case PeriodLast30Days:
		return today.AddDate(0, 0, -30), today
	case PeriodThisYear:
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), today
	}

	return time.Time{}, time.Time{}
}

// PeriodSelectedMsg is emitted once a range is chosen. Start and End are
// zero when All is set.
type PeriodSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// PeriodPicker lets the user pick a preset period or type a custom range.
type PeriodPicker struct {
	custom   bool
	selected Period

	startInput textinput.Model
	endInput   textinput.Model
	onEnd      bool

	err error
	now func() time.Time
}

func dateInput(prompt string) textinput.Model {
	in := textinput.New()
	in.Placeholder = "YYYY-MM-DD"
	in.CharLimit = 10
	in.Width = 12
	in.Prompt = prompt

	return in
}

func NewPeriodPicker(initial Period) PeriodPicker {
	return PeriodPicker{
		selected:   initial,
		startInput: dateInput("From: "),
		endInput:   dateInput("To:   "),
		now:        time.Now,
	}
}

func (m PeriodPicker) Update(msg tea.Msg) (PeriodPicker, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)

	switch {
	case ok && !m.custom:
		return m.updatePresets(key)
	case ok && m.custom:
		return m.updateCustom(key)
	case m.custom:
		return m.updateInputs(msg)
	}

	return m, nil
}

func (m PeriodPicker) updatePresets(key tea.KeyMsg) (PeriodPicker, tea.Cmd) {
	switch key.Type {
	case tea.KeyUp:
		if m.selected > PeriodThisMonth {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < PeriodCustom {
			m.selected++
		}
	case tea.KeyEnter:
		switch m.selected {
		case PeriodCustom:
			m.custom = true
			m.onEnd = false
			m.startInput.Focus()

			return m, textinput.Blink
		case PeriodAll:
			return m, func() tea.Msg { return PeriodSelectedMsg{All: true} }
		}

		start, end := m.selected.Bounds(m.now())

		return m, func() tea.Msg { return PeriodSelectedMsg{Start: start, End: end} }
	}

	return m, nil
}

func (m PeriodPicker) updateCustom(key tea.KeyMsg) (PeriodPicker, tea.Cmd) {
	switch key.String() {
	case "tab", "shift+tab":
		m.onEnd = !m.onEnd
		if m.onEnd {
			m.startInput.Blur()
			m.endInput.Focus()
		} else {
			m.endInput.Blur()
			m.startInput.Focus()
		}

		return m, textinput.Blink

	case "enter":
		start, end, err := parseRange(m.startInput.Value(), m.endInput.Value())
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil

		return m, func() tea.Msg { return PeriodSelectedMsg{Start: start, End: end} }

	case "esc":
		m.custom = false
		m.err = nil

		return m, nil
	}

	return m.updateInputs(key)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(from))
	if err != nil {
		return start, start, errors.New("start date must be YYYY-MM-DD")
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(to))
	if err != nil {
		return start, end, errors.New("end date must be YYYY-MM-DD")
	}

	if end.Before(start) {
		return start, end, errors.New("end date is before start date")
	}

	return start, end, nil
}

func (m PeriodPicker) updateInputs(msg tea.Msg) (PeriodPicker, tea.Cmd) {
	var c1, c2 tea.Cmd

	m.startInput, c1 = m.startInput.Update(msg)
	m.endInput, c2 = m.endInput.Update(msg)

	return m, tea.Batch(c1, c2)
}

func (m PeriodPicker) View() string {
	var b strings.Builder

	if m.custom {
		fmt.Fprintf(&b, "Invoice dates:\n\n%s\n%s\n\n(Enter to confirm, Tab to switch, Esc to go back)",
			m.startInput.View(), m.endInput.View())
	} else {
		b.WriteString("Invoice dates:\n\n")

		for p := PeriodThisMonth; p <= PeriodCustom; p++ {
			cursor := " "
			if p == m.selected {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, p)
		}

		b.WriteString("\n(Enter to select, Esc to go back)")
	}

	if m.err != nil {
		b.WriteString("\n\n" + errorStyle("Error: "+m.err.Error()))
	}

	return b.String()
}

// Choosing reports whether the picker shows the preset list.
func (m PeriodPicker) Choosing() bool {
	return !m.custom
}
