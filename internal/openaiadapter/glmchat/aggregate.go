package glmchat

import (
	"context"
	"log/slog"
	"strings"

	"glm-relay/internal/openaiadapter"
	"glm-relay/internal/openaiadapter/types"
)

// aggregateSink folds state machine output into the pieces of one final
// document instead of emitting incrementally. Reasoning text has no place
// in the aggregate message and is discarded.
type aggregateSink struct {
	content     strings.Builder
	invocations []ToolInvocation
	usage       *types.CompletionUsage
}

func (s *aggregateSink) Content(text string) bool {
	s.content.WriteString(text)
	return true
}

func (s *aggregateSink) Reasoning(string) bool { return true }

func (s *aggregateSink) ToolCalls(invocations []ToolInvocation) bool {
	s.invocations = append(s.invocations, invocations...)
	return true
}

// Finish records usage only. The aggregate finish reason is derived from
// the final document shape, not from the terminal emission.
func (s *aggregateSink) Finish(_ string, usage *types.CompletionUsage) bool {
	s.usage = usage
	return true
}

// ProcessRequest calls the GLM upstream and aggregates the whole event
// stream into one chat.completion document. The same state machine as the
// streaming path runs underneath; invocations appear only in the final
// message's tool-call list, never incrementally.
func (a *Adapter) ProcessRequest(ctx context.Context, clientReq openaiadapter.CreateChatCompletionRequest, caller openaiadapter.UpstreamCaller) (*openaiadapter.CreateChatCompletionResponse, error) {
	resp, err := a.call(ctx, clientReq, caller)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	sink := &aggregateSink{}
	r := newRun(sink, len(clientReq.Tools) > 0, a.thinking, a.splice)
	// Aggregate-only recovery for upstreams that repeat same-id blocks
	// instead of producing reassemblable indexed fragments.
	r.fragmentFallback = collectArgumentsByID

	scanner := newEventScanner(resp.Body)
	for {
		record, ok := scanner.NextData()
		if !ok {
			break
		}
		payload, _ := decodePayload(record.Raw)
		if r.handle(&payload) {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		slog.ErrorContext(ctx, "upstream stream fault, closing run", "error", err)
		r.closeStop()
	} else {
		r.closeRun()
	}

	// All-zero usage is the documented default when the upstream never
	// supplied any.
	usage := types.CompletionUsage{}
	if sink.usage != nil {
		usage = *sink.usage
	}

	builder := newChunkBuilder(clientReq.Model)
	return builder.document(sink.content.String(), sink.invocations, usage), nil
}
