// Package http provides the JSON API server.
//
// This file implements response helpers: JSON envelopes and the mapping
// from domain errors to HTTP status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps service and validation errors to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrNotPDF):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, services.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Request failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidCurrency,
		core.ErrInvalidMethod,
		core.ErrInvalidDate,
		core.ErrEmptyCategory,
		core.ErrEmptyTitle,
		core.ErrInvalidMonthKey,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// requireMethod writes a 405 with an Allow header unless the request method
// matches. Returns false when the request was rejected.
func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}
