package glmchat

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"glm-relay/internal/openaiadapter/types"
)

// newCompletionID generates an OpenAI-compatible response ID
// (chatcmpl-<token>). The upstream protocol has no response id to carry
// over, so every run mints its own.
func newCompletionID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	// Use RawURLEncoding to avoid '+', '/' and trailing '='
	token := base64.RawURLEncoding.EncodeToString(b)
	return "chatcmpl-" + token
}

// chunkBuilder constructs the streaming output shapes for one run. All
// chunks of a run share the same id, creation time, and model.
type chunkBuilder struct {
	id      string
	created int64
	model   string
}

func newChunkBuilder(model string) *chunkBuilder {
	return &chunkBuilder{
		id:      newCompletionID(),
		created: time.Now().Unix(),
		model:   model,
	}
}

func (b *chunkBuilder) chunk(delta types.StreamDelta) *types.CreateChatCompletionStreamResponse {
	return &types.CreateChatCompletionStreamResponse{
		ID:      b.id,
		Object:  types.ObjectChatCompletionChunk,
		Created: b.created,
		Model:   b.model,
		Choices: []types.StreamChoice{{Index: 0, Delta: delta}},
	}
}

// role announces the assistant role; it is always the first chunk of a run.
func (b *chunkBuilder) role() *types.CreateChatCompletionStreamResponse {
	return b.chunk(types.StreamDelta{Role: "assistant"})
}

func (b *chunkBuilder) content(text string) *types.CreateChatCompletionStreamResponse {
	return b.chunk(types.StreamDelta{Content: &text})
}

func (b *chunkBuilder) reasoning(text string) *types.CreateChatCompletionStreamResponse {
	return b.chunk(types.StreamDelta{ReasoningContent: &text})
}

// toolCallStart announces invocation callIndex with its id and name and an
// empty arguments string.
func (b *chunkBuilder) toolCallStart(callIndex int, inv ToolInvocation) *types.CreateChatCompletionStreamResponse {
	return b.chunk(types.StreamDelta{
		ToolCalls: []types.StreamToolCall{{
			Index:    callIndex,
			ID:       inv.ID,
			Type:     "function",
			Function: &types.ToolCallFunctionDelta{Name: inv.Name, Arguments: ""},
		}},
	})
}

// toolCallArguments carries invocation callIndex's full argument text.
func (b *chunkBuilder) toolCallArguments(callIndex int, arguments string) *types.CreateChatCompletionStreamResponse {
	return b.chunk(types.StreamDelta{
		ToolCalls: []types.StreamToolCall{{
			Index:    callIndex,
			Function: &types.ToolCallFunctionDelta{Arguments: arguments},
		}},
	})
}

// finish is the terminal chunk: finish reason plus usage when the run
// accumulated any.
func (b *chunkBuilder) finish(reason string, usage *types.CompletionUsage) *types.CreateChatCompletionStreamResponse {
	c := b.chunk(types.StreamDelta{})
	c.Choices[0].FinishReason = &reason
	c.Usage = usage
	return c
}

// document constructs the aggregate response. Tool invocations and content
// are mutually exclusive: invocations present means content is null and the
// finish reason is tool_calls.
func (b *chunkBuilder) document(content string, invocations []ToolInvocation, usage types.CompletionUsage) *types.CreateChatCompletionResponse {
	msg := types.ChatCompletionMessage{Role: "assistant"}
	finish := types.FinishReasonStop

	if len(invocations) > 0 {
		finish = types.FinishReasonToolCalls
		msg.ToolCalls = make([]types.ToolCall, 0, len(invocations))
		for _, inv := range invocations {
			msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
				ID:   inv.ID,
				Type: "function",
				Function: types.ToolCallFunction{
					Name:      inv.Name,
					Arguments: inv.Arguments,
				},
			})
		}
	} else {
		msg.Content = &content
	}

	return &types.CreateChatCompletionResponse{
		ID:      b.id,
		Object:  types.ObjectChatCompletion,
		Created: b.created,
		Model:   b.model,
		Choices: []types.Choice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage:   usage,
	}
}
