package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Apurv-15/ai-invoice-track/internal/analytics"
	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
)

var windowLabels = map[string]string{
	"current_month": "this month",
	"last_30_days":  "last 30 days",
	"all":           "all time",
}

// AnalyticsModel shows the spending dashboard and refreshes it as invoices change.
type AnalyticsModel struct {
	CommonModel
	svc  *analytics.Service
	hub  *realtime.Hub
	feed *Feed

	summary *analytics.Summary
	err     error
}

func NewAnalyticsModel(svc *analytics.Service, hub *realtime.Hub) AnalyticsModel {
	return AnalyticsModel{svc: svc, hub: hub}
}

func (m AnalyticsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AnalyticsModel) Start() (AnalyticsModel, tea.Cmd) {
	m.feed = Watch(m.hub, realtime.Filter{Table: realtime.TableInvoices})
	return m, tea.Batch(m.loadCmd(), m.feed.Next())
}

func (m AnalyticsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case analyticsLoadedMsg:
		m.summary, m.err = msg.summary, msg.err
	case ChangeMsg:
		if msg.Feed == m.feed {
			return m, tea.Batch(m.loadCmd(), m.feed.Next())
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.feed.Close()
			m.feed = nil

			return m, Back
		case "r":
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m AnalyticsModel) View() string {
	pad := lipgloss.NewStyle().Padding(1, 2)

	if m.err != nil {
		return pad.Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	s := m.summary
	if s == nil {
		return pad.Render("Loading analytics...")
	}

	bold := lipgloss.NewStyle().Bold(true)

	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n\n", bold.Render("Spending"), windowLabels[s.Window])
	fmt.Fprintf(&b, "Invoices:  %d\n", s.InvoiceCount)
	fmt.Fprintf(&b, "Total:     %s\n", FormatAmount(s.TotalSpending))
	fmt.Fprintf(&b, "Average:   %s\n", FormatAmount(s.AverageAmount))
	fmt.Fprintf(&b, "Pending:   %s\n", activeStyle(fmt.Sprint(s.PendingCount)))
	fmt.Fprintf(&b, "Users:     %d\n", s.TotalUsers)

	b.WriteString("\n" + bold.Render("By category") + "\n")

	for _, c := range s.Categories {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("■")
		fmt.Fprintf(&b, "%s %-24s %12s\n", swatch, c.Name, FormatAmount(c.Total))
	}

	b.WriteString("\n" + bold.Render("Top submitters") + "\n")

	for i, o := range s.TopOwners {
		fmt.Fprintf(&b, "%2d. %-24s %12s\n", i+1, o.Name, FormatAmount(o.Total))
	}

	b.WriteString("\n" + bold.Render("Last 12 months") + "\n")

	for _, mt := range s.Monthly {
		fmt.Fprintf(&b, "%d-%02d %12s\n", mt.Year, int(mt.Month), FormatAmount(mt.Total))
	}

	b.WriteString("\n(r to refresh, Esc to go back)")

	return pad.Render(b.String())
}

type analyticsLoadedMsg struct {
	summary *analytics.Summary
	err     error
}

func (m AnalyticsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		s, err := m.svc.Summary(ctx)

		return analyticsLoadedMsg{summary: s, err: err}
	}
}
