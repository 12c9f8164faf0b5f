package handlers

import (
	"net/http"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TaxHandler serves the derived tax state.
type TaxHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewTaxHandler creates a new tax handler.
func NewTaxHandler(a *app.App, log zerolog.Logger) *TaxHandler {
	return &TaxHandler{app: a, log: log}
}

// GetCalculation handles GET /api/tax
func (h *TaxHandler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.app.Calculation())
}

// GetUtilization handles GET /api/utilization
func (h *TaxHandler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.app.Utilization())
}

// GetFiling handles GET /api/filing
func (h *TaxHandler) GetFiling(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.app.FilingReport())
}

// GetAnalysis handles GET /api/analysis?investment=
func (h *TaxHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	investment, ok := amountParam(r, "investment")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid investment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Analysis(investment))
}

// ListInsights handles GET /api/insights
func (h *TaxHandler) ListInsights(w http.ResponseWriter, r *http.Request) {
	list := h.app.Insights()
	unread := 0
	for _, in := range list {
		if !in.IsRead {
			unread++
		}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": list,
		"count":    len(list),
		"unread":   unread,
	})
}

// MarkInsightRead handles POST /api/insights/{id}/read
func (h *TaxHandler) MarkInsightRead(w http.ResponseWriter, r *http.Request) {
	if err := h.app.MarkInsightRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, h.log, err, "Failed to mark insight read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
