package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Apurv-15/ai-invoice-track/cmd/tui/internal/view"
	"github.com/Apurv-15/ai-invoice-track/internal/analytics"
	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/config"
	"github.com/Apurv-15/ai-invoice-track/internal/database"
	"github.com/Apurv-15/ai-invoice-track/internal/digest"
	"github.com/Apurv-15/ai-invoice-track/internal/export"
	"github.com/Apurv-15/ai-invoice-track/internal/extract"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	invoiceStore "github.com/Apurv-15/ai-invoice-track/internal/invoice/store"
	"github.com/Apurv-15/ai-invoice-track/internal/profile"
	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
	reminderStore "github.com/Apurv-15/ai-invoice-track/internal/reminder/store"
)

type View int

const (
	ViewMenu View = iota
	ViewQueue
	ViewReminders
	ViewAnalytics
	ViewDigest
	ViewExport
)

type services struct {
	invoices   *invoice.Service
	reminders  *reminder.Service
	analytics  *analytics.Service
	digest     *digest.Service
	export     *export.Service
	hub        *realtime.Hub
	reviewerID uuid.UUID
}

type model struct {
	svc         services
	currentView View

	queueView     view.QueueModel
	remindersView view.RemindersModel
	analyticsView view.AnalyticsModel
	digestView    view.DigestModel
	exportView    view.ExportModel
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewQueue
				m.queueView, cmd = view.NewQueueModel(m.svc.invoices, m.svc.hub, m.svc.reviewerID).Start()

				return m, cmd
			case "2":
				m.currentView = ViewReminders
				m.remindersView, cmd = view.NewRemindersModel(m.svc.reminders, m.svc.hub).Start()

				return m, cmd
			case "3":
				m.currentView = ViewAnalytics
				m.analyticsView, cmd = view.NewAnalyticsModel(m.svc.analytics, m.svc.hub).Start()

				return m, cmd
			case "4":
				m.currentView = ViewDigest
				m.digestView = view.NewDigestModel(m.svc.digest)

				return m, m.digestView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.svc.export)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	var next tea.Model

	switch m.currentView {
	case ViewQueue:
		next, cmd = m.queueView.Update(msg)
		m.queueView = next.(view.QueueModel)
	case ViewReminders:
		next, cmd = m.remindersView.Update(msg)
		m.remindersView = next.(view.RemindersModel)
	case ViewAnalytics:
		next, cmd = m.analyticsView.Update(msg)
		m.analyticsView = next.(view.AnalyticsModel)
	case ViewDigest:
		next, cmd = m.digestView.Update(msg)
		m.digestView = next.(view.DigestModel)
	case ViewExport:
		next, cmd = m.exportView.Update(msg)
		m.exportView = next.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Invoice Review Console\n\n" +
				"1. Review Queue\n" +
				"2. Reminders\n" +
				"3. Analytics\n" +
				"4. Send Pending Digest\n" +
				"5. Export Archive\n\n" +
				"q. Quit",
		)
	case ViewQueue:
		return m.queueView.View()
	case ViewReminders:
		return m.remindersView.View()
	case ViewAnalytics:
		return m.analyticsView.View()
	case ViewDigest:
		return m.digestView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	if err := run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reviewerID, err := uuid.Parse(cfg.TUI.ReviewerID)
	if err != nil {
		return fmt.Errorf("TUI_REVIEWER_ID must be the reviewing admin's user id: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	// The terminal belongs to the UI; keep library logs out of it.
	logger := slog.New(slog.DiscardHandler)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	var writer digest.Writer
	if cfg.ExtractionEnabled() {
		writer = digest.NewAIWriter(extract.New(extract.Config{
			BaseURL: cfg.AI.GatewayURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		}, logger))
	}

	var (
		profiles       = profile.NewStore(db)
		invoiceService = invoice.NewService(invoiceStore.New(db))
		hub            = realtime.NewHub()
	)

	svc := services{
		invoices:   invoiceService,
		reminders:  reminder.NewService(reminderStore.New(db)),
		analytics:  analytics.NewService(invoiceService, profiles),
		export:     export.NewService(invoiceService, blobs, logger),
		hub:        hub,
		reviewerID: reviewerID,
		digest: digest.NewService(
			invoiceService,
			profiles,
			digest.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From),
			writer,
			cfg.Digest.MinAge,
			logger,
		),
	}

	listener := realtime.NewListener(cfg.ConnectionString(), hub, logger)
	go func() { _ = listener.Run(ctx) }()

	p := tea.NewProgram(model{svc: svc, currentView: ViewMenu}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	cancel()
	hub.Wait()

	return nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "local":
		return blob.NewLocal(cfg.Storage.LocalDir)
	case "firebase":
		return blob.NewFirebase(ctx, cfg.Storage.FirebaseBucket, cfg.Storage.FirebaseCredentials)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
}
