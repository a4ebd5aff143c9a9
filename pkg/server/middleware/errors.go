package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// RequestID correlates the error with server logs.
	RequestID string `json:"request_id,omitempty"`
}

// Error codes.
const (
	CodeInvalidJSON      = "invalid_json"
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidQuery     = "invalid_query"
	CodeBodyTooLarge     = "body_too_large"
	CodeBatchTooLarge    = "batch_too_large"
	CodeNotVerifiable    = "not_verifiable"
	CodeRateLimited      = "rate_limit_exceeded"
	CodeTimeout          = "timeout"
	CodeUnavailable      = "service_unavailable"
	CodeInternal         = "internal_error"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
)

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Message:   message,
		Code:      code,
		RequestID: GetRequestID(r.Context()),
	}})
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
