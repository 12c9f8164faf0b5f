package handlers

import (
	"bytes"
	"net/http"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/export"
	"github.com/rs/zerolog"
)

// ExportHandler serves the downloadable exports.
type ExportHandler struct {
	app   *app.App
	clock clock.Clock
	log   zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(a *app.App, clk clock.Clock, log zerolog.Logger) *ExportHandler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ExportHandler{app: a, clock: clk, log: log}
}

// TransactionsCSV handles GET /api/export/transactions.csv
func (h *ExportHandler) TransactionsCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteTransactionsCSV(&buf, h.app.Transactions(app.TransactionFilter{})); err != nil {
		h.log.Error().Err(err).Msg("Failed to export transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export transactions")
		return
	}
	attach(w, "text/csv; charset=utf-8", export.TransactionsFileName(h.clock.Now()), buf.Bytes())
}

// SummaryJSON handles GET /api/export/summary.json
func (h *ExportHandler) SummaryJSON(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	summary := export.NewSummary(h.app.Profile(), h.app.Calculation(), now)

	var buf bytes.Buffer
	if err := export.WriteSummaryJSON(&buf, summary); err != nil {
		h.log.Error().Err(err).Msg("Failed to export summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export summary")
		return
	}
	attach(w, "application/json", export.SummaryFileName(now), buf.Bytes())
}

func attach(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
