// Package httputil centralizes JSON response writing and domain error
// translation for the HTTP layer.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "mrcreams/pkg/domain-errors"
)

// ErrorResponse is the envelope for every failed request. Handlers never leak
// raw errors; the body carries a stable code plus a user-facing message.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	// The response body may be incomplete, but headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and error envelopes.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Success: false,
			Code:    string(domainErr.Code),
			Error:   dErrors.UserMessage(err),
		})
		return
	}

	// Fallback for unexpected errors: never expose internals.
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Code:    string(dErrors.CodeInternal),
		Error:   "internal error",
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeMissingConsent, dErrors.CodeInvalidConsent:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
