package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/http/analytics"
	"github.com/Apurv-15/ai-invoice-track/internal/http/category"
	"github.com/Apurv-15/ai-invoice-track/internal/http/events"
	"github.com/Apurv-15/ai-invoice-track/internal/http/export"
	"github.com/Apurv-15/ai-invoice-track/internal/http/functions"
	"github.com/Apurv-15/ai-invoice-track/internal/http/importcsv"
	"github.com/Apurv-15/ai-invoice-track/internal/http/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/http/matching"
	"github.com/Apurv-15/ai-invoice-track/internal/http/reminder"
	"github.com/Apurv-15/ai-invoice-track/internal/metrics"
)

type Handlers struct {
	Invoices   *invoice.Handler
	Import     *importcsv.Handler
	Reminders  *reminder.Handler
	Categories *category.Handler
	Rules      *matching.Handler
	Analytics  *analytics.Handler
	Export     *export.Handler
	Events     *events.Handler
	Functions  *functions.Handler
}

// New mounts the API. Every route except /metrics requires a bearer token.
func New(h Handlers, authn func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:         300,
	}))
	router.Use(metrics.Middleware)

	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authn)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/invoices", func(r chi.Router) {
				r.Route("/import", h.Import.Routes)
				h.Invoices.Routes(r)
			})

			r.Route("/reminders", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Reminders.Routes(r)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Categories.Routes(r)
			})

			r.Route("/category-rules", h.Rules.Routes)
			r.Route("/analytics", h.Analytics.Routes)

			r.Route("/admin/export", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				h.Export.Routes(r)
			})

			r.Route("/events", h.Events.Routes)
		})

		r.Route("/functions", h.Functions.Routes)
	})

	return router
}
