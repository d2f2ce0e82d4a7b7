// Package glmchat adapts OpenAI chat completion requests to the GLM
// streaming upstream, reconstructing OpenAI responses from GLM's
// phase-tagged SSE delta protocol.
//
// The adapter handles:
//
//   - Stream lexing: GLM responses arrive as Server-Sent Events split at
//     arbitrary byte boundaries. The lexer keeps a rolling line buffer so a
//     record split across reads is never surfaced early.
//
//   - Phase reconstruction: every upstream payload is tagged with a phase
//     (thinking, answer, tool_call, other, done). A per-run state machine
//     decides whether a payload's text is emitted live, buffered, or
//     suppressed, and guarantees exactly one terminal sequence per run.
//
//   - Tool call reassembly: GLM transmits tool invocations as <glm_block>
//     JSON documents split into indexed edit fragments. The reassembler
//     merges fragments by index, splices out the upstream-echoed result
//     section, and recovers {id, name, arguments} metadata, with layered
//     fallbacks for upstreams that repeat same-id blocks instead of
//     indexing fragments.
//
//   - Streaming: emitted chunks follow OpenAI's chat.completion.chunk
//     protocol (role announcement, content/reasoning/tool-call increments,
//     finish chunk); the aggregate path folds the same state machine into
//     one chat.completion document.
//
// Shape tolerance is deliberate throughout: a malformed payload is recovered
// to documented defaults, never dropped and never surfaced as a client error.
//
// # Adapters
//
// Adapter: OpenAI CreateChatCompletion → GLM chat stream
package glmchat
