package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/rs/zerolog"
)

// AssistantHandler exposes the tax assistant conversation.
type AssistantHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(a *app.App, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{app: a, log: log}
}

// ListMessages handles GET /api/assistant/messages
func (h *AssistantHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.app.ChatHistory()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

// PostMessage handles POST /api/assistant/messages
func (h *AssistantHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	question := strings.TrimSpace(req.Message)
	if question == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.app.Ask(r.Context(), question)
	if err != nil {
		writeAppError(w, h.log, err, "Failed to save conversation")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}
