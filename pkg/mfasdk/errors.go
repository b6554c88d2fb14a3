package mfasdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flindersec/mfad/pkg/httpx"
)

// Error codes shared between the server and SDK clients.
const (
	ErrorCodeValidation         = "validation_error"
	ErrorCodeDuplicateUsername  = "duplicate_username"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidTOTPCode    = "invalid_totp_code"
	ErrorCodeRateLimited        = "rate_limited"
	ErrorCodeInvalidSession     = "invalid_session"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeServerError        = "server_error"
)

// APIError is the wire-level error shape. It implements the error interface
// and is used both by HTTP handlers (to write responses) and by the SDK
// client (to represent failures).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g., "invalid_credentials")
	Code string `json:"error"`

	// Message is a human-readable, caller-safe description
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// NewAPIError creates an APIError with the given status code, error code,
// and message.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}
