package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
)

var queueFilters = []struct {
	label  string
	status *invoice.Status
}{
	{"Pending", new(invoice.StatusPending)},
	{"Approved", new(invoice.StatusApproved)},
	{"Rejected", new(invoice.StatusRejected)},
	{"Paid", new(invoice.StatusPaid)},
	{"All", nil},
}

type queueState int

const (
	queueStateBrowse queueState = iota
	queueStateReject
)

// QueueModel is the review queue: a table of invoices with approve, reject
// and pay actions. It reloads whenever an invoice row changes.
type QueueModel struct {
	CommonModel
	svc        *invoice.Service
	hub        *realtime.Hub
	reviewerID uuid.UUID

	state     queueState
	table     table.Model
	invs      []*invoice.Invoice
	filterIdx int
	feed      *Feed

	form   *huh.Form
	reason *string

	loading bool
	err     error
	status  string
}

func NewQueueModel(svc *invoice.Service, hub *realtime.Hub, reviewerID uuid.UUID) QueueModel {
	return QueueModel{
		svc:        svc,
		hub:        hub,
		reviewerID: reviewerID,
		loading:    true,
		table: newTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Number", Width: 16},
			{Title: "Vendor", Width: 24},
			{Title: "Amount", Width: 12},
			{Title: "Status", Width: 10},
			{Title: "Submitted by", Width: 26},
		}),
	}
}

func (m QueueModel) Init() tea.Cmd {
	return m.loadCmd()
}

// Start subscribes to invoice changes. It is called when the screen opens.
func (m QueueModel) Start() (QueueModel, tea.Cmd) {
	m.feed = Watch(m.hub, realtime.Filter{Table: realtime.TableInvoices})
	return m, tea.Batch(m.loadCmd(), m.feed.Next())
}

func (m QueueModel) leave() (tea.Model, tea.Cmd) {
	m.feed.Close()
	m.feed = nil

	return m, Back
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.invs = msg.invs
			m.refreshTable()
		}

		return m, nil

	case queueActionMsg:
		m.state = queueStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("%s failed: %v", msg.action, msg.err))
		} else {
			m.status = fmt.Sprintf("%s %s", msg.inv.InvoiceNumber, msg.action)
		}

		return m, m.loadCmd()

	case ChangeMsg:
		if msg.Feed != m.feed {
			return m, nil
		}

		return m, tea.Batch(m.loadCmd(), m.feed.Next())

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == queueStateReject {
		return m.updateReject(msg)
	}

	return m.updateBrowse(msg)
}

func (m QueueModel) selected() *invoice.Invoice {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invs) {
		return nil
	}

	return m.invs[idx]
}

func (m QueueModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m.leave()
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.filterIdx = (m.filterIdx + 1) % len(queueFilters)
			m.loading = true

			return m, m.loadCmd()
		case "a":
			if inv := m.selected(); inv != nil {
				return m, m.actionCmd(inv, "approved", func() (*invoice.Invoice, error) {
					ctx, cancel := DbCtx()
					defer cancel()

					return m.svc.Approve(ctx, inv.ID, m.reviewerID)
				})
			}
		case "p":
			if inv := m.selected(); inv != nil {
				return m, m.actionCmd(inv, "marked paid", func() (*invoice.Invoice, error) {
					ctx, cancel := DbCtx()
					defer cancel()

					return m.svc.MarkPaid(ctx, inv.ID)
				})
			}
		case "x":
			if inv := m.selected(); inv != nil && inv.Status == invoice.StatusPending {
				return m.enterReject()
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m QueueModel) enterReject() (tea.Model, tea.Cmd) {
	m.reason = new("")
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("reason").
				Title("Rejection reason").
				Description("Shown to the submitter").
				Value(m.reason).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a reason is required")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = queueStateReject
	m.table.Blur()

	return m, m.form.Init()
}

func (m QueueModel) updateReject(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = queueStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	inv := m.selected()
	if inv == nil {
		m.state = queueStateBrowse
		return m, nil
	}

	reason := *m.reason

	return m, m.actionCmd(inv, "rejected", func() (*invoice.Invoice, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.svc.Reject(ctx, inv.ID, m.reviewerID, reason)
	})
}

func (m QueueModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	header := fmt.Sprintf("Review queue  [s] Status: %s  |  a: approve  x: reject  p: paid  r: refresh  Esc: back",
		activeStyle(queueFilters[m.filterIdx].label))

	body := framed(m.table)
	if m.loading {
		body = "Loading invoices..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		body,
	)

	if inv := m.selected(); inv != nil && m.state == queueStateBrowse {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, detailPanel(inv))
	}

	if inv := m.selected(); inv != nil && m.state == queueStateReject && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Reject " + inv.InvoiceNumber + "\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func detailPanel(inv *invoice.Invoice) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", inv.InvoiceNumber)

	if inv.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", inv.Description)
	}

	if inv.Category != nil {
		conf := ""
		if inv.CategoryConfidence != nil {
			conf = fmt.Sprintf(" (%.0f%%)", *inv.CategoryConfidence*100)
		}

		fmt.Fprintf(&b, "Category: %s%s\n", inv.Category.Name, conf)
	}

	if inv.FileURL != "" {
		b.WriteString("Document attached\n")
	}

	if inv.RejectionReason != "" {
		fmt.Fprintf(&b, "\nRejected: %s\n", inv.RejectionReason)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(40).
		Render(b.String())
}

func (m *QueueModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.invs))

	for _, inv := range m.invs {
		owner := ""
		if inv.Owner != nil {
			owner = inv.Owner.Email
		}

		rows = append(rows, table.Row{
			FormatDate(inv.Date),
			inv.InvoiceNumber,
			inv.Vendor,
			FormatAmount(inv.Amount),
			string(inv.Status),
			owner,
		})
	}

	m.table.SetRows(rows)

	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

type queueLoadedMsg struct {
	invs []*invoice.Invoice
	err  error
}

func (m QueueModel) loadCmd() tea.Cmd {
	filter := invoice.ListFilter{Status: queueFilters[m.filterIdx].status}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		invs, err := m.svc.List(ctx, filter)

		return queueLoadedMsg{invs: invs, err: err}
	}
}

type queueActionMsg struct {
	inv    *invoice.Invoice
	action string
	err    error
}

func (m QueueModel) actionCmd(inv *invoice.Invoice, action string, do func() (*invoice.Invoice, error)) tea.Cmd {
	return func() tea.Msg {
		_, err := do()
		return queueActionMsg{inv: inv, action: action, err: err}
	}
}
