package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/gcsuploader"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/dvloznov/tax-tracker/internal/notionsync"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps wires the router. Notion and Warehouse are optional.
type Deps struct {
	App        *app.App
	Archive    gcsuploader.Archive
	Publisher  jobs.Publisher
	JobStore   jobs.JobStore
	Notion     notionsync.NotionService
	Warehouse  WarehouseSyncer
	Clock      clock.Clock
	Logger     zerolog.Logger
	MaxRetries int
	// RequestTimeout bounds every request; zero disables the limit.
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	log := d.Logger

	transactions := NewTransactionsHandler(d.App, log)
	taxes := NewTaxHandler(d.App, log)
	profile := NewProfileHandler(d.App, log)
	documents := NewDocumentsHandler(d.App, d.Archive, d.Publisher, d.MaxRetries, log)
	jobsHandler := NewJobsHandler(d.JobStore, log)
	pending := NewPendingHandler(d.App, log)
	assistant := NewAssistantHandler(d.App, log)
	exports := NewExportHandler(d.App, d.Clock, log)
	syncs := NewSyncHandler(d.App, d.Notion, d.Warehouse, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profile.GetProfile)
			r.Put("/", profile.UpdateProfile)
			r.Post("/complete", profile.CompleteOnboarding)
		})
		r.Get("/settings", profile.GetSettings)
		r.Put("/settings", profile.UpdateSettings)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.ListTransactions)
			r.Post("/", transactions.CreateTransaction)
			r.Get("/{id}", transactions.GetTransaction)
			r.Put("/{id}", transactions.UpdateTransaction)
			r.Delete("/{id}", transactions.DeleteTransaction)
		})

		r.Get("/tax", taxes.GetCalculation)
		r.Get("/utilization", taxes.GetUtilization)
		r.Get("/filing", taxes.GetFiling)
		r.Get("/analysis", taxes.GetAnalysis)
		r.Get("/insights", taxes.ListInsights)
		r.Post("/insights/{id}/read", taxes.MarkInsightRead)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documents.ListDocuments)
			r.Post("/", documents.UploadDocuments)
			r.Delete("/{id}", documents.DeleteDocument)
		})

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)

		r.Route("/pending", func(r chi.Router) {
			r.Get("/", pending.GetPending)
			r.Post("/confirm", pending.ConfirmPending)
			r.Post("/reject", pending.RejectPending)
			r.Patch("/{index}", pending.EditPending)
			r.Delete("/{index}", pending.RemovePending)
		})

		r.Get("/assistant/messages", assistant.ListMessages)
		r.Post("/assistant/messages", assistant.PostMessage)

		r.Get("/export/transactions.csv", exports.TransactionsCSV)
		r.Get("/export/summary.json", exports.SummaryJSON)

		r.Post("/sync/notion", syncs.SyncNotion)
		r.Post("/sync/warehouse", syncs.SyncWarehouse)
	})

	return r
}
