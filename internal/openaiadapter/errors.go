package openaiadapter

import "net/http"

// ChatCompletionError represents an OpenAI-formatted error for chat
// completion endpoints. This is the standard error structure that OpenAI
// clients expect.
type ChatCompletionError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// Error implements the error interface, returning the error message.
func (e *ChatCompletionError) Error() string {
	return e.Message
}

// ChatCompletionErrorResponse wraps ChatCompletionError in the body format
// that OpenAI clients expect: {"error": {...}}
type ChatCompletionErrorResponse struct {
	// Err is the underlying error detail. JSON tag ensures it serializes as "error".
	Err *ChatCompletionError `json:"error"`
}

// Error implements the error interface, returning the underlying error message.
// This allows ChatCompletionErrorResponse to be used directly in error returns
// while maintaining the full OpenAI error structure for marshaling.
func (e *ChatCompletionErrorResponse) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Message
}

// HTTPStatus maps the error type to the HTTP status code OpenAI API
// conventions assign to it.
func (e *ChatCompletionErrorResponse) HTTPStatus() int {
	if e.Err == nil {
		return http.StatusInternalServerError
	}
	switch e.Err.Type {
	case "invalid_request_error":
		return http.StatusBadRequest
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_denied":
		return http.StatusForbidden
	case "rate_limit_error", "insufficient_quota":
		return http.StatusTooManyRequests
	default:
		// server_error, api_error, and anything unrecognized
		return http.StatusInternalServerError
	}
}
