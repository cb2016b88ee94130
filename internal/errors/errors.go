// ABOUTME: Standardized error response bodies for the fake REST backend.
// ABOUTME: Writes {"detail": ...} documents and per-field validation errors.

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error body every backend endpoint writes. Clients
// surface Detail as the error message.
//
// Usage:
//   WriteError(w, http.StatusNotFound, ErrNotFound, "Not found.")
type ErrorResponse struct {
	Detail string `json:"detail"`         // Human-readable error message
	Code   string `json:"code,omitempty"` // Machine-readable error code
}

// WriteError writes a detail-style error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Detail: message, Code: code})
}

// WriteFieldErrors writes validation errors keyed by field name. Errors not
// tied to one field go under "non_field_errors".
//
// Example:
//   WriteFieldErrors(w, map[string][]string{"non_field_errors": {"Unable to log in with provided credentials."}})
func WriteFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusBadRequest, fields)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Common error codes
const (
	// Client errors (4xx)
	ErrInvalidRequest   = "invalid"
	ErrParseError       = "parse_error"
	ErrNotAuthenticated = "not_authenticated"
	ErrAuthFailed       = "authentication_failed"
	ErrPermissionDenied = "permission_denied"
	ErrNotFound         = "not_found"
	ErrMethodNotAllowed = "method_not_allowed"

	// Server errors (5xx)
	ErrInternal      = "error"
	ErrDatabaseError = "database_error"
)
