package handlers

import (
	"net/http"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(a *app.App, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		app: a,
		log: log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := app.TransactionFilter{
		Search: query.Get("search"),
		Source: domain.Source(query.Get("source")),
	}

	if s := query.Get("type"); s != "" {
		t, ok := domain.ParseTransactionType(s)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid type")
			return
		}
		filter.Type = t
	}
	if s := query.Get("category"); s != "" {
		c, ok := domain.ParseCategory(s)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid category")
			return
		}
		filter.Category = c
	}

	var ok bool
	if filter.Limit, ok = intParam(r, "limit"); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if filter.Offset, ok = intParam(r, "offset"); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	transactions := h.app.Transactions(filter)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.Candidate
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Source = domain.SourceManual

	tx, err := h.app.AddTransaction(r.Context(), req)
	if err != nil {
		writeAppError(w, h.log, err, "Failed to add transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.app.Transaction(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.app.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
