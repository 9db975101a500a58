package handler

// Every error response has the same shape:
//
//	{"error": "validation_error", "message": "Title is required", "fields": {"title": "Title is required"}}
//
// "fields" is only present when the error names fields, so the login and
// add-todo forms can show each message next to its input.
//
// STATUS MAPPING (writeError):
//
//	ErrValidation / ErrMissingField / ErrInvalidFormat  → 400
//	ErrUnauthenticated / ErrIncorrectPassword          → 401
//	ErrWrongAuthMethod                                 → 409
//	ErrNotFound                                        → 404
//	ErrUpstream                                        → 502
//	anything else                                      → 500, logged, generic message
//
// REQUEST BODIES:
// decodeJSON caps every body at maxBodyBytes before decoding. Login input is
// matched against regexp2 patterns, which run without a timeout, so an
// unbounded email or password would let one request pin a CPU.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/todo-manager/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string            `json:"message"` // Human-readable description
	Fields  map[string]string `json:"fields,omitempty"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// maxBodyBytes caps every JSON request body. Login and todo payloads are a
// few hundred bytes.
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into dst and answers the client itself
// when the body is malformed (400) or larger than maxBodyBytes (413).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload_too_large", Message: "Request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return false
	}
	return true
}

// errorKind maps a domain error to its HTTP status and machine-readable type.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrMissingField),
		errors.Is(err, apperror.ErrInvalidFormat),
		errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrIncorrectPassword):
		return http.StatusUnauthorized, "incorrect_password"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrWrongAuthMethod):
		return http.StatusConflict, "wrong_auth_method"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it. Errors that are not apperror values become a generic 500 so
// internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := errorKind(err)

	var fieldErrs apperror.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: fieldErrs.Error(),
			Fields:  fieldErrs.ByField(),
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: errorType, Message: appErr.Message}
		if appErr.Field != "" {
			resp.Fields = map[string]string{appErr.Field: appErr.Message}
		}
		writeJSON(w, status, resp)
		return
	}

	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
