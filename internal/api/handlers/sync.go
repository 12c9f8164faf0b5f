package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	infrabq "github.com/dvloznov/tax-tracker/internal/infra/bigquery"
	"github.com/dvloznov/tax-tracker/internal/notionsync"
	"github.com/rs/zerolog"
)

// WarehouseSyncer pushes the current state to the analytics warehouse.
type WarehouseSyncer interface {
	Sync(ctx context.Context, in infrabq.SyncInput) (infrabq.SyncReport, error)
}

// SyncHandler triggers the optional Notion mirror and warehouse sync. Either
// may be nil, in which case its endpoint answers 503.
type SyncHandler struct {
	app       *app.App
	notion    notionsync.NotionService
	warehouse WarehouseSyncer
	log       zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(a *app.App, notion notionsync.NotionService, warehouse WarehouseSyncer, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		app:       a,
		notion:    notion,
		warehouse: warehouse,
		log:       log,
	}
}

// SyncNotion handles POST /api/sync/notion
func (h *SyncHandler) SyncNotion(w http.ResponseWriter, r *http.Request) {
	if h.notion == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Notion sync is not configured")
		return
	}

	dryRun := false
	if s := r.URL.Query().Get("dry_run"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid dry_run")
			return
		}
		dryRun = v
	}

	report, err := notionsync.SyncTransactions(r.Context(), h.notion, h.app.Transactions(app.TransactionFilter{}), dryRun)
	if err != nil {
		h.log.Error().Err(err).Msg("Notion sync failed")
		middleware.WriteError(w, http.StatusBadGateway, "Notion sync failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// SyncWarehouse handles POST /api/sync/warehouse
func (h *SyncHandler) SyncWarehouse(w http.ResponseWriter, r *http.Request) {
	if h.warehouse == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Warehouse sync is not configured")
		return
	}

	report, err := h.warehouse.Sync(r.Context(), infrabq.SyncInput{
		Transactions: h.app.Transactions(app.TransactionFilter{}),
		Calculation:  h.app.Calculation(),
		Utilization:  h.app.Utilization(),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Warehouse sync failed")
		middleware.WriteError(w, http.StatusBadGateway, "Warehouse sync failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}
