package handlers

import (
	"net/http"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/rs/zerolog"
)

// ProfileHandler handles the user profile and tax settings.
type ProfileHandler struct {
	app *app.App
	log zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(a *app.App, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{app: a, log: log}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"profile":   h.app.Profile(),
		"isNewUser": h.app.IsNewUser(),
	})
}

// UpdateProfile handles PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UserProfile
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.SetProfile(r.Context(), req); err != nil {
		writeAppError(w, h.log, err, "Failed to save profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Profile())
}

// CompleteOnboarding handles POST /api/profile/complete
func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req domain.UserProfile
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.CompleteOnboarding(r.Context(), req); err != nil {
		writeAppError(w, h.log, err, "Failed to complete onboarding")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Profile())
}

// GetSettings handles GET /api/settings
func (h *ProfileHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.app.Settings())
}

// UpdateSettings handles PUT /api/settings
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req := h.app.Settings()
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.SetSettings(r.Context(), req); err != nil {
		writeAppError(w, h.log, err, "Failed to save settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.app.Settings())
}
