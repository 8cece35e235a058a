package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Apurv-15/ai-invoice-track/internal/analytics"
	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/category"
	categoryStore "github.com/Apurv-15/ai-invoice-track/internal/category/store"
	"github.com/Apurv-15/ai-invoice-track/internal/config"
	"github.com/Apurv-15/ai-invoice-track/internal/database"
	"github.com/Apurv-15/ai-invoice-track/internal/digest"
	"github.com/Apurv-15/ai-invoice-track/internal/export"
	"github.com/Apurv-15/ai-invoice-track/internal/extract"
	apiHttp "github.com/Apurv-15/ai-invoice-track/internal/http"
	analyticsHandler "github.com/Apurv-15/ai-invoice-track/internal/http/analytics"
	categoryHandler "github.com/Apurv-15/ai-invoice-track/internal/http/category"
	eventsHandler "github.com/Apurv-15/ai-invoice-track/internal/http/events"
	exportHandler "github.com/Apurv-15/ai-invoice-track/internal/http/export"
	functionsHandler "github.com/Apurv-15/ai-invoice-track/internal/http/functions"
	importHandler "github.com/Apurv-15/ai-invoice-track/internal/http/importcsv"
	invoiceHandler "github.com/Apurv-15/ai-invoice-track/internal/http/invoice"
	matchingHandler "github.com/Apurv-15/ai-invoice-track/internal/http/matching"
	reminderHandler "github.com/Apurv-15/ai-invoice-track/internal/http/reminder"
	"github.com/Apurv-15/ai-invoice-track/internal/importer"
	"github.com/Apurv-15/ai-invoice-track/internal/ingest"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	invoiceStore "github.com/Apurv-15/ai-invoice-track/internal/invoice/store"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
	matchingStore "github.com/Apurv-15/ai-invoice-track/internal/matching/store"
	"github.com/Apurv-15/ai-invoice-track/internal/profile"
	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
	"github.com/Apurv-15/ai-invoice-track/internal/reminder"
	reminderStore "github.com/Apurv-15/ai-invoice-track/internal/reminder/store"
	"github.com/Apurv-15/ai-invoice-track/internal/render"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	db, err := database.Open(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		profiles        = profile.NewStore(db)
		invoiceService  = invoice.NewService(invoiceStore.New(db))
		categoryService = category.NewService(categoryStore.New(db))
		matchingService = matching.NewService(matchingStore.New(db))
		reminderService = reminder.NewService(reminderStore.New(db))
		importService   = importer.NewService()
		exportService   = export.NewService(invoiceService, blobs, logger)
		analyticsSvc    = analytics.NewService(invoiceService, profiles)
	)

	// Interface values stay nil when no gateway is configured.
	var (
		extractor   ingest.Extractor
		functionsAI functionsHandler.Extractor
		writer      digest.Writer
	)

	if cfg.ExtractionEnabled() {
		client := extract.New(extract.Config{
			BaseURL: cfg.AI.GatewayURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		}, logger)

		extractor, functionsAI, writer = client, client, digest.NewAIWriter(client)
	} else {
		slog.Warn("AI_API_KEY not set, uploads will create placeholder invoices")
	}

	if cfg.Mail.ResendAPIKey == "" {
		slog.Warn("RESEND_API_KEY not set, admin reminders will fail to send")
	}

	ingestService := ingest.NewService(ingest.Deps{
		Blobs:      blobs,
		Renderer:   render.New(cfg.AI.PDFRenderer, logger),
		Extractor:  extractor,
		Rules:      matchingService,
		Categories: categoryService,
		Invoices:   invoiceService,
		Logger:     logger,
	})

	digestService := digest.NewService(
		invoiceService,
		profiles,
		digest.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From),
		writer,
		cfg.Digest.MinAge,
		logger,
	)

	hub := realtime.NewHub()
	listener := realtime.NewListener(cfg.ConnectionString(), hub, logger)

	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("realtime listener stopped", "error", err)
		}
	}()

	handlers := apiHttp.Handlers{
		Invoices:   invoiceHandler.NewHandler(invoiceService, ingestService, blobs),
		Import:     importHandler.NewHandler(importService, invoiceService, matchingService),
		Reminders:  reminderHandler.NewHandler(reminderService),
		Categories: categoryHandler.NewHandler(categoryService),
		Rules:      matchingHandler.NewHandler(matchingService),
		Analytics:  analyticsHandler.NewHandler(analyticsSvc),
		Export:     exportHandler.NewHandler(exportService),
		Events:     eventsHandler.NewHandler(hub),
		Functions:  functionsHandler.NewHandler(functionsAI, digestService),
	}

	authn := auth.Middleware(auth.NewVerifier(cfg.Auth.JWTSecret), profiles)
	router := apiHttp.New(handlers, authn, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr, "storage", cfg.Storage.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

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
