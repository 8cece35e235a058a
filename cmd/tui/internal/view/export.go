package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Apurv-15/ai-invoice-track/internal/export"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

const exportTimeout = 2 * time.Minute

type exportState int

const (
	exportStatePeriod exportState = iota
	exportStatePath
	exportStateRunning
	exportStateDone
)

// ExportModel writes the admin archive (workbook plus documents) to disk.
type ExportModel struct {
	CommonModel
	svc *export.Service

	state  exportState
	picker PeriodPicker
	filter invoice.ListFilter

	form    *huh.Form
	dir     *string
	spinner spinner.Model

	file string
	size int64
	err  error
}

func NewExportModel(svc *export.Service) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		svc:     svc,
		state:   exportStatePeriod,
		picker:  NewPeriodPicker(PeriodThisMonth),
		dir:     new("./exports"),
		spinner: s,
	}
}

func (m ExportModel) Init() tea.Cmd {
	return nil
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sel, ok := msg.(PeriodSelectedMsg); ok {
		m.filter = invoice.ListFilter{}
		if !sel.All {
			m.filter.StartDate = &sel.Start
			m.filter.EndDate = &sel.End
		}

		m.form = m.pathForm()
		m.state = exportStatePath

		return m, m.form.Init()
	}

	switch m.state {
	case exportStatePeriod:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc && m.picker.Choosing() {
			return m, Back
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd

	case exportStatePath:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			m.state = exportStatePeriod
			return m, nil
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State != huh.StateCompleted {
			return m, cmd
		}

		m.state = exportStateRunning

		return m, tea.Batch(m.spinner.Tick, m.runCmd(m.filter, *m.dir))

	case exportStateRunning:
		if res, ok := msg.(exportDoneMsg); ok {
			m.state = exportStateDone
			m.file, m.size, m.err = res.file, res.size, res.err

			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case exportStateDone:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m ExportModel) pathForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("dir").
				Title("Output directory").
				Description("Created when missing").
				Placeholder("./exports").
				Value(m.dir),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case exportStatePeriod:
		return pad.Render(m.picker.View())
	case exportStatePath:
		return pad.Render(m.form.View())
	case exportStateRunning:
		return pad.Render(m.spinner.View() + " Building archive and fetching documents...")
	}

	if m.err != nil {
		return pad.Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("Export written")

	return pad.Render(fmt.Sprintf("%s\n\n%s (%s)\n\n(Esc to go back)", title, m.file, humanize.Bytes(uint64(m.size))))
}

type exportDoneMsg struct {
	file string
	size int64
	err  error
}

func (m ExportModel) runCmd(filter invoice.ListFilter, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportDoneMsg{err: err}
		}

		path := filepath.Join(dir, fmt.Sprintf("invoices_%s.zip", time.Now().Format("20060102_150405")))

		f, err := os.Create(path)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		defer f.Close()

		if err := m.svc.Archive(ctx, filter, f); err != nil {
			os.Remove(path)
			return exportDoneMsg{err: err}
		}

		info, err := f.Stat()
		if err != nil {
			return exportDoneMsg{err: err}
		}

		return exportDoneMsg{file: path, size: info.Size()}
	}
}
