package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"glm-relay/internal/openaiadapter"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONOpenAIError writes an OpenAI-compatible error response. The HTTP
// status code follows from the error type.
func writeJSONOpenAIError(ctx context.Context, w http.ResponseWriter, errResp *openaiadapter.ChatCompletionErrorResponse) {
	writeJSON(ctx, w, errResp, errResp.HTTPStatus())
}

// newOpenAIError builds an error response with the given type and message.
func newOpenAIError(errType, message string) *openaiadapter.ChatCompletionErrorResponse {
	return &openaiadapter.ChatCompletionErrorResponse{
		Err: &openaiadapter.ChatCompletionError{
			Message: message,
			Type:    errType,
		},
	}
}
