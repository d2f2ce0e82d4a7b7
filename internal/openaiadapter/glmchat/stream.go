package glmchat

import (
	"context"
	"iter"
	"log/slog"

	"glm-relay/internal/openaiadapter"
	"glm-relay/internal/openaiadapter/types"
)

// streamSink emits state machine output as chat.completion.chunk values
// through the iterator's yield.
type streamSink struct {
	b     *chunkBuilder
	yield func(*types.CreateChatCompletionStreamResponse, error) bool
}

func (s *streamSink) Content(text string) bool {
	return s.yield(s.b.content(text), nil)
}

func (s *streamSink) Reasoning(text string) bool {
	return s.yield(s.b.reasoning(text), nil)
}

// ToolCalls emits a started increment (id, name, empty arguments) then an
// arguments increment per invocation, ahead of the finish chunk.
func (s *streamSink) ToolCalls(invocations []ToolInvocation) bool {
	for i, inv := range invocations {
		if !s.yield(s.b.toolCallStart(i, inv), nil) {
			return false
		}
		if !s.yield(s.b.toolCallArguments(i, inv.Arguments), nil) {
			return false
		}
	}
	return true
}

func (s *streamSink) Finish(reason string, usage *types.CompletionUsage) bool {
	return s.yield(s.b.finish(reason, usage), nil)
}

// ProcessStreamingRequest calls the GLM upstream and returns an iterator of
// OpenAI streaming chunks reconstructed from the phase-tagged event stream.
//
// The iterator is single-pass and consumer-paced: the run suspends only
// while awaiting the next byte chunk from the transport, so state machine
// transitions follow strict arrival order. Breaking out of the loop
// releases the upstream stream; the body is closed exactly once on every
// exit path.
func (a *Adapter) ProcessStreamingRequest(ctx context.Context, clientReq openaiadapter.CreateChatCompletionRequest, caller openaiadapter.UpstreamCaller) (iter.Seq2[*types.CreateChatCompletionStreamResponse, error], error) {
	resp, err := a.call(ctx, clientReq, caller)
	if err != nil {
		return nil, err
	}

	return func(yield func(*types.CreateChatCompletionStreamResponse, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		builder := newChunkBuilder(clientReq.Model)
		r := newRun(
			&streamSink{b: builder, yield: yield},
			len(clientReq.Tools) > 0,
			a.thinking,
			a.splice,
		)
		r.inline = a.inline

		// Role announcement opens every run.
		if !yield(builder.role(), nil) {
			return
		}

		scanner := newEventScanner(resp.Body)
		for {
			record, ok := scanner.NextData()
			if !ok {
				break
			}
			payload, _ := decodePayload(record.Raw)
			if r.handle(&payload) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			// A mid-stream fault degrades to a graceful stop; it is
			// reported to the operator log only, never forwarded as a
			// protocol-level error.
			slog.ErrorContext(ctx, "upstream stream fault, closing run", "error", err)
			r.closeStop()
			return
		}

		// Upstream ended without an explicit done payload.
		r.closeRun()
	}, nil
}
