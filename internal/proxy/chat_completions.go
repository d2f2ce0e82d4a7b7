package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"glm-relay/internal/openaiadapter"
	"glm-relay/internal/openaiadapter/glmchat"
)

// CreateChatCompletionsHandler handles OpenAI-compatible chat completion
// requests, streaming or aggregate depending on the request's stream flag.
type CreateChatCompletionsHandler struct {
	Adapter openaiadapter.CreateChatCompletionAdapter
	Caller  openaiadapter.UpstreamCaller
}

// Compile-time check to ensure CreateChatCompletionsHandler implements http.Handler
var _ http.Handler = (*CreateChatCompletionsHandler)(nil)

// ServeHTTP implements http.Handler for streaming or non-streaming requests.
func (h *CreateChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openaiadapter.CreateChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONOpenAIError(ctx, w, newOpenAIError("invalid_request_error", http.StatusText(http.StatusRequestEntityTooLarge)))
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONOpenAIError(ctx, w, newOpenAIError("invalid_request_error", http.StatusText(http.StatusBadRequest)))
		return
	}

	if req.Stream != nil && *req.Stream {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// writeResponse handles non-streaming chat completion requests.
func (h *CreateChatCompletionsHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, h.Caller)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeJSONOpenAIError(ctx, w, glmchat.AsErrorResponse(err))
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams chat completion chunks using SSE.
func (h *CreateChatCompletionsHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, h.Caller)
	if err != nil {
		// Upstream call and status failures happen before any stream
		// exists, so the client still gets one plain JSON error.
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		writeJSONOpenAIError(ctx, w, glmchat.AsErrorResponse(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONOpenAIError(ctx, w, newOpenAIError("api_error", http.StatusText(http.StatusInternalServerError)))
		return
	}

	for chunk, err := range stream {
		// Check for client disconnect before processing chunk
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			// The translator converts upstream faults into a graceful stop
			// terminal itself, so an error here is unexpected. Surface it in
			// the format OpenAI SDKs recognize and stop reading on.
			slog.ErrorContext(ctx, "stream error", "error", err)
			if writeErr := sse.WriteEvent("error"); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error event type", "error", writeErr)
				return
			}
			if writeErr := sse.WriteData(glmchat.AsErrorResponse(err)); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error", "error", writeErr)
			}
			return
		}

		if err := sse.WriteData(chunk); err != nil {
			slog.ErrorContext(ctx, "failed to write chunk", "error", err)
			return
		}
	}

	// OpenAI streaming protocol requires the [DONE] marker
	if err := sse.WriteRaw(streamDoneSentinel); err != nil {
		slog.ErrorContext(ctx, "failed to write stream termination marker", "error", err)
	}
}
