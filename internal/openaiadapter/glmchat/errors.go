package glmchat

import (
	"errors"
	"fmt"
	"net/http"

	"glm-relay/internal/openaiadapter"
)

// UpstreamCallError wraps a transport collaborator failure that happened
// before any response existed. This layer never retries; retry policy
// belongs to the transport.
type UpstreamCallError struct {
	Err error
}

// Error implements the error interface.
func (e *UpstreamCallError) Error() string {
	return fmt.Sprintf("upstream call failed: %v", e.Err)
}

// Unwrap exposes the transport error for errors.Is/As chains.
func (e *UpstreamCallError) Unwrap() error {
	return e.Err
}

// UpstreamStatusError reports a non-success upstream status. It is
// independent of anything the response stream may contain; the stream is
// not consumed when this is returned.
type UpstreamStatusError struct {
	StatusCode int
	Body       string // truncated upstream body, for the error message only
}

// Error implements the error interface.
func (e *UpstreamStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// AsErrorResponse converts an adapter error into the OpenAI-compatible error
// body handlers write to clients. Transport and status failures map onto the
// OpenAI error taxonomy; anything else is wrapped as a generic server_error.
func AsErrorResponse(err error) *openaiadapter.ChatCompletionErrorResponse {
	if err == nil {
		return nil
	}

	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		return &openaiadapter.ChatCompletionErrorResponse{
			Err: &openaiadapter.ChatCompletionError{
				Message: statusErr.Error(),
				Type:    errorTypeForStatus(statusErr.StatusCode),
			},
		}
	}

	var callErr *UpstreamCallError
	if errors.As(err, &callErr) {
		return &openaiadapter.ChatCompletionErrorResponse{
			Err: &openaiadapter.ChatCompletionError{
				Message: callErr.Error(),
				Type:    "api_error",
			},
		}
	}

	return &openaiadapter.ChatCompletionErrorResponse{
		Err: &openaiadapter.ChatCompletionError{
			Message: err.Error(),
			Type:    "server_error",
		},
	}
}

// errorTypeForStatus maps an upstream HTTP status onto the OpenAI error
// taxonomy.
func errorTypeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusBadRequest:
		return "invalid_request_error"
	default:
		return "api_error"
	}
}
