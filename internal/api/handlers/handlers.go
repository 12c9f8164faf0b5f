// Package handlers implements the HTTP endpoints over the application state.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeAppError maps domain errors to status codes. Anything unknown is
// logged and reported as a 500 with msg.
func writeAppError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		middleware.WriteValidationError(w, domain.Fields(err))
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoPending):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// amountParam parses an optional non-negative decimal query parameter.
func amountParam(r *http.Request, name string) (decimal.Decimal, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
