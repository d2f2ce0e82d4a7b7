package glmchat

import (
	"context"
	"io"

	"github.com/google/uuid"

	"glm-relay/internal/openaiadapter"
)

// Adapter implements openaiadapter.CreateChatCompletionAdapter for the GLM
// streaming upstream. It is stateless across requests: every call owns its
// run state exclusively and discards it at run end.
type Adapter struct {
	credential string
	modelMap   map[string]string
	thinking   ThinkingTransform
	splice     SplicePolicy
	inline     InlineToolCallExtractor
}

// Compile-time check that Adapter satisfies the adapter contract.
var _ openaiadapter.CreateChatCompletionAdapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithModelRedirects rewrites client model names to upstream ones.
func WithModelRedirects(m map[string]string) Option {
	return func(a *Adapter) { a.modelMap = m }
}

// WithThinkingTransform replaces the transform applied to thinking-phase
// text before emission.
func WithThinkingTransform(t ThinkingTransform) Option {
	return func(a *Adapter) { a.thinking = t }
}

// WithSplicePolicy replaces the argument/result boundary policy used during
// fragment reassembly.
func WithSplicePolicy(p SplicePolicy) Option {
	return func(a *Adapter) { a.splice = p }
}

// WithInlineExtractor replaces the last-resort extractor run over buffered
// answer text on the streaming path.
func WithInlineExtractor(e InlineToolCallExtractor) Option {
	return func(a *Adapter) { a.inline = e }
}

// New creates an Adapter holding the given upstream credential. The
// credential is opaque here and merely forwarded to the transport
// collaborator.
func New(credential string, opts ...Option) *Adapter {
	a := &Adapter{
		credential: credential,
		thinking:   defaultThinkingTransform,
		splice:     DefaultSplicePolicy,
		inline:     defaultInlineExtractor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// statusErrorBodyLimit bounds how much of a failed upstream response ends up
// in the error message.
const statusErrorBodyLimit = 2048

// call builds the upstream body and issues the outbound request through the
// transport collaborator. On success the caller owns the returned body
// stream.
func (a *Adapter) call(ctx context.Context, clientReq openaiadapter.CreateChatCompletionRequest, caller openaiadapter.UpstreamCaller) (*openaiadapter.UpstreamResponse, error) {
	body, err := buildUpstreamBody(clientReq, a.modelMap)
	if err != nil {
		return nil, err
	}

	resp, err := caller.Call(ctx, body, uuid.NewString(), a.credential)
	if err != nil {
		return nil, &UpstreamCallError{Err: err}
	}

	// A non-success status is an upstream error independent of anything the
	// stream may contain.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, statusErrorBodyLimit))
		_ = resp.Body.Close()
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return resp, nil
}
