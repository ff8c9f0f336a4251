package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError, so all responses
// share one content type and every error has the same shape:
//
//	{"error": "not_found", "message": "user not found", "field": ""}
//
// The frontend can parse any 4xx/5xx without knowing which route sent it.

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/rilmas/internal/apperror"
)

// maxBodyBytes bounds request bodies. Profile images arrive as data: URLs,
// hence the generous limit.
const maxBodyBytes = 5 << 20

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // input field at fault, if any
}

// writeJSON sets headers, then status, then body. Headers set after the
// first body write are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone already; logging is all that is left
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
// errors.As finds the *AppError anywhere in a wrapped chain, so services can
// add context with fmt.Errorf("...: %w", err) without breaking the mapping.
// Anything that is not an AppError is a 500 with a generic message; the raw
// text may carry file paths or backend details.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// are rejected so a typo (or an attempt to set userId) fails loudly.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is empty")
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

// logIfInternal logs err unless it is an AppError the client caused.
func logIfInternal(logger *slog.Logger, msg string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return
	}
	logger.Error(msg, slog.String("error", err.Error()))
}
