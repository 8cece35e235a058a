package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Apurv-15/ai-invoice-track/internal/digest"
)

const digestTimeout = time.Minute

// DigestModel asks for confirmation and then emails the pending-review digest.
type DigestModel struct {
	CommonModel
	svc *digest.Service

	form    *huh.Form
	confirm *bool
	sending bool
	spinner spinner.Model

	result *digest.Result
	err    error
}

func NewDigestModel(svc *digest.Service) DigestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := DigestModel{svc: svc, spinner: s, confirm: new(bool)}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Email the admin about invoices waiting for review?").
			Affirmative("Send").
			Negative("Cancel").
			Value(m.confirm),
	)).WithShowHelp(false)

	return m
}

func (m DigestModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m DigestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc && !m.sending {
		return m, Back
	}

	if res, ok := msg.(digestSentMsg); ok {
		m.sending = false
		m.result, m.err = res.result, res.err

		return m, nil
	}

	if m.sending {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	if m.result != nil || m.err != nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !*m.confirm {
		return m, Back
	}

	m.sending = true

	return m, tea.Batch(m.spinner.Tick, m.sendCmd())
}

func (m DigestModel) View() string {
	pad := lipgloss.NewStyle().Padding(1, 2)

	switch {
	case m.sending:
		return pad.Render(m.spinner.View() + " Sending digest...")
	case m.err != nil:
		return pad.Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	case m.result != nil && m.result.Sent:
		return pad.Render(fmt.Sprintf("%s\n%d invoice(s) included.\n\n(Esc to go back)", m.result.Message, m.result.Count))
	case m.result != nil:
		return pad.Render(m.result.Message + "\n\n(Esc to go back)")
	}

	return pad.Render(m.form.View())
}

type digestSentMsg struct {
	result *digest.Result
	err    error
}

func (m DigestModel) sendCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()

		res, err := m.svc.Send(ctx, time.Now())

		return digestSentMsg{result: res, err: err}
	}
}
