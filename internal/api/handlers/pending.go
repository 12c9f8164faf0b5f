package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PendingHandler drives the confirmation of extracted transactions.
type PendingHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewPendingHandler creates a new pending handler.
func NewPendingHandler(a *app.App, log zerolog.Logger) *PendingHandler {
	return &PendingHandler{app: a, log: log}
}

// GetPending handles GET /api/pending
func (h *PendingHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.app.Pending())
}

// EditPending handles PATCH /api/pending/{index}
func (h *PendingHandler) EditPending(w http.ResponseWriter, r *http.Request) {
	index, ok := pendingIndex(w, r)
	if !ok {
		return
	}
	var req domain.TransactionUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	edited, err := h.app.EditPending(r.Context(), index, req)
	if err != nil {
		writeAppError(w, h.log, err, "Failed to edit pending transaction")
		return
	}
	if !edited {
		middleware.WriteError(w, http.StatusNotFound, "Pending transaction not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Pending())
}

// RemovePending handles DELETE /api/pending/{index}
func (h *PendingHandler) RemovePending(w http.ResponseWriter, r *http.Request) {
	index, ok := pendingIndex(w, r)
	if !ok {
		return
	}

	removed, err := h.app.RemovePending(r.Context(), index)
	if err != nil {
		writeAppError(w, h.log, err, "Failed to remove pending transaction")
		return
	}
	if !removed {
		middleware.WriteError(w, http.StatusNotFound, "Pending transaction not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Pending())
}

// ConfirmPending handles POST /api/pending/confirm
//
// A candidate that fails validation stops the commit. The response still
// lists what was committed before it.
func (h *PendingHandler) ConfirmPending(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.ConfirmPending(r.Context())
	if err != nil {
		if fields := domain.Fields(err); fields != nil {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":     "Validation failed",
				"fields":    fields,
				"committed": result.Committed,
				"remaining": result.Remaining,
			})
			return
		}
		writeAppError(w, h.log, err, "Failed to confirm pending transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// RejectPending handles POST /api/pending/reject
func (h *PendingHandler) RejectPending(w http.ResponseWriter, r *http.Request) {
	if err := h.app.RejectPending(r.Context()); err != nil {
		writeAppError(w, h.log, err, "Failed to reject pending transactions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pendingIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid index")
		return 0, false
	}
	return index, true
}
