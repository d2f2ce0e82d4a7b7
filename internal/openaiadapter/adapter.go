package openaiadapter

import (
	"context"
	"io"
	"iter"

	"glm-relay/internal/openaiadapter/types"
)

// UpstreamResponse is what the transport collaborator hands back: the status
// of the outbound call plus the raw body stream. Ownership of Body passes to
// the caller, which must close it exactly once.
type UpstreamResponse struct {
	StatusCode int
	Body       io.ReadCloser
}

// UpstreamCaller performs the outbound upstream request. Adapters depend on
// this contract alone; the concrete transport lives at the composition root,
// which keeps the translation layers free of HTTP concerns and trivially
// testable against in-memory streams.
type UpstreamCaller interface {
	// Call sends the prepared request body upstream. runID correlates the
	// outbound call with the run's structured logs; credential is opaque to
	// the adapter and attached by the transport however the upstream wants
	// it.
	Call(ctx context.Context, body []byte, runID, credential string) (*UpstreamResponse, error)
}

// UpstreamCallerFunc adapts a function to the UpstreamCaller interface.
type UpstreamCallerFunc func(ctx context.Context, body []byte, runID, credential string) (*UpstreamResponse, error)

// Call implements UpstreamCaller.
func (f UpstreamCallerFunc) Call(ctx context.Context, body []byte, runID, credential string) (*UpstreamResponse, error) {
	return f(ctx, body, runID, credential)
}

// Adapter defines the contract for translating client requests into
// provider calls and provider streams back into client shapes.
//
// Type parameters express the translation contract for different
// request/response shapes while keeping compile-time type safety:
//   - TRequest:  client-facing request structure
//   - TResponse: client-facing aggregate response structure
//   - TChunk:    client-facing streaming chunk structure
type Adapter[TRequest, TResponse, TChunk any] interface {
	// ProcessRequest translates the client request, calls the provider
	// through the caller, and folds the provider stream into one response
	// document. Implementations must be stateless across calls.
	ProcessRequest(ctx context.Context, clientReq TRequest, caller UpstreamCaller) (*TResponse, error)

	// ProcessStreamingRequest translates the client request, calls the
	// provider through the caller, and returns a single-pass iterator of
	// translated chunks. Implementations must be stateless across calls.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, caller UpstreamCaller) (iter.Seq2[*TChunk, error], error)
}

// Type aliases for the OpenAI-compatible chat completion operation.
// CreateChatCompletionAdapter is the concrete adapter interface the proxy
// handlers are wired against.
type (
	CreateChatCompletionRequest  = types.CreateChatCompletionRequest
	CreateChatCompletionResponse = types.CreateChatCompletionResponse
	CreateChatCompletionChunk    = types.CreateChatCompletionStreamResponse

	CreateChatCompletionAdapter = Adapter[
		CreateChatCompletionRequest,
		CreateChatCompletionResponse,
		CreateChatCompletionChunk,
	]
)
