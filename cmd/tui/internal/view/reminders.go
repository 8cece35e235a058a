package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
)

// RemindersModel lists the messages users sent to the admins.
type RemindersModel struct {
	CommonModel
	svc *reminder.Service
	hub *realtime.Hub

	table   table.Model
	rems    []*reminder.Reminder
	feed    *Feed
	onlyNew bool

	form  *huh.Form
	notes *string

	loading bool
	err     error
	status  string
}

func NewRemindersModel(svc *reminder.Service, hub *realtime.Hub) RemindersModel {
	return RemindersModel{
		svc:     svc,
		hub:     hub,
		loading: true,
		onlyNew: true,
		table: newTable([]table.Column{
			{Title: "Received", Width: 17},
			{Title: "Priority", Width: 8},
			{Title: "Category", Width: 10},
			{Title: "Status", Width: 9},
			{Title: "From", Width: 24},
			{Title: "Title", Width: 30},
		}),
	}
}

func (m RemindersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RemindersModel) Start() (RemindersModel, tea.Cmd) {
	m.feed = Watch(m.hub, realtime.Filter{Table: realtime.TableReminders})
	return m, tea.Batch(m.loadCmd(), m.feed.Next())
}

func (m RemindersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case remindersLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.rems = msg.rems
			m.refreshTable()
		}

		return m, nil

	case reminderSavedMsg:
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("Error: %v", msg.err))
		} else {
			m.status = "Saved"
		}

		return m, m.loadCmd()

	case ChangeMsg:
		if msg.Feed != m.feed {
			return m, nil
		}

		return m, tea.Batch(m.loadCmd(), m.feed.Next())
	}

	if m.form != nil {
		return m.updateNotes(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		rem := m.selected()

		switch key.String() {
		case "esc":
			m.feed.Close()
			m.feed = nil

			return m, Back
		case "f":
			m.onlyNew = !m.onlyNew
			m.loading = true

			return m, m.loadCmd()
		case "m":
			if rem != nil {
				return m, m.saveCmd(func() error {
					ctx, cancel := DbCtx()
					defer cancel()

					_, err := m.svc.MarkRead(ctx, rem.ID)

					return err
				})
			}
		case "v":
			if rem != nil {
				return m, m.saveCmd(func() error {
					ctx, cancel := DbCtx()
					defer cancel()

					_, err := m.svc.MarkResolved(ctx, rem.ID)

					return err
				})
			}
		case "n":
			if rem != nil {
				m.notes = new(rem.AdminNotes)
				m.form = huh.NewForm(huh.NewGroup(
					huh.NewText().Key("notes").Title("Admin notes").Value(m.notes),
				)).WithWidth(45).WithShowHelp(false)
				m.table.Blur()

				return m, m.form.Init()
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RemindersModel) updateNotes(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	rem := m.selected()
	if m.form.State != huh.StateCompleted || rem == nil {
		return m, cmd
	}

	notes := *m.notes

	return m, m.saveCmd(func() error {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.svc.AddNotes(ctx, rem.ID, notes)

		return err
	})
}

func (m RemindersModel) selected() *reminder.Reminder {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rems) {
		return nil
	}

	return m.rems[idx]
}

func (m RemindersModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	scope := "All"
	if m.onlyNew {
		scope = "Unread"
	}

	header := fmt.Sprintf("Reminders  [f] Show: %s  |  m: mark read  v: resolve  n: notes  Esc: back", activeStyle(scope))

	body := framed(m.table)
	if m.loading {
		body = "Loading reminders..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		body,
	)

	if rem := m.selected(); rem != nil {
		text := rem.Title + "\n\n" + rem.Message
		if rem.AdminNotes != "" {
			text += "\n\nNotes: " + rem.AdminNotes
		}

		if m.form != nil {
			text = m.form.View()
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(text)

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *RemindersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rems))

	for _, r := range m.rems {
		from := r.OwnerEmail
		if r.OwnerName != "" {
			from = r.OwnerName
		}

		rows = append(rows, table.Row{
			r.CreatedAt.Format("2006-01-02 15:04"),
			string(r.Priority),
			string(r.Category),
			string(r.Status),
			from,
			r.Title,
		})
	}

	m.table.SetRows(rows)

	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

type remindersLoadedMsg struct {
	rems []*reminder.Reminder
	err  error
}

func (m RemindersModel) loadCmd() tea.Cmd {
	var filter reminder.ListFilter
	if m.onlyNew {
		filter.Status = new(reminder.StatusPending)
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rems, err := m.svc.List(ctx, filter)

		return remindersLoadedMsg{rems: rems, err: err}
	}
}

type reminderSavedMsg struct {
	err error
}

func (m RemindersModel) saveCmd(do func() error) tea.Cmd {
	return func() tea.Msg {
		return reminderSavedMsg{err: do()}
	}
}
