package glmchat

import (
	"maps"
	"slices"
	"strings"

	"glm-relay/internal/openaiadapter/types"
)

// runSink receives the state machine's emissions. Every method reports
// whether the consumer is still pulling; false stops the run.
type runSink interface {
	Content(text string) bool
	Reasoning(text string) bool
	ToolCalls(invocations []ToolInvocation) bool
	Finish(reason string, usage *types.CompletionUsage) bool
}

// runState is the per-run flag and buffer bag. It is exclusively owned by
// one run, mutated only by the single consuming goroutine, and discarded at
// run end.
type runState struct {
	toolMode       bool
	answerBuffer   strings.Builder // answer text withheld while tool mode is active
	fragments      map[int]string  // tool-call fragment text by edit index
	usage          *types.CompletionUsage
	finishSeen     bool
	answerEditSeen bool
	closed         bool // idempotence guard for the terminal sequence
}

// run drives the phase state machine for one translation. The same machine
// backs both the streaming and the aggregate translator; only the sink and
// the fallback hooks differ.
type run struct {
	state    runState
	sink     runSink
	thinking ThinkingTransform
	splice   SplicePolicy

	// inline recovers tool calls from buffered answer text when no
	// fragments resolved; streaming path only.
	inline InlineToolCallExtractor
	// fragmentFallback gets the joined fragment text when indexed
	// reassembly resolved nothing; aggregate path only.
	fragmentFallback func(content string) []ToolInvocation
}

func newRun(sink runSink, toolMode bool, thinking ThinkingTransform, splice SplicePolicy) *run {
	if thinking == nil {
		thinking = defaultThinkingTransform
	}
	if splice == nil {
		splice = DefaultSplicePolicy
	}
	return &run{
		state: runState{
			toolMode:  toolMode,
			fragments: make(map[int]string),
		},
		sink:     sink,
		thinking: thinking,
		splice:   splice,
	}
}

// handle applies one decoded payload to the run. It returns true when the
// run is over and iteration must stop, either because a terminal sequence
// was emitted or because the consumer stopped pulling.
func (r *run) handle(p *upstreamPayload) bool {
	// An error anywhere in the payload short-circuits to an error-close.
	// Downstream sees a normal stop terminal, never a protocol violation.
	if p.firstError() != nil {
		r.closeStop()
		return true
	}

	switch p.Phase {
	case phaseToolCall:
		// Content is edit_content keyed by edit_index; missing content is a
		// no-op. Tool-call payloads never emit content directly.
		if p.EditContent != "" {
			r.state.fragments[p.EditIndex] = p.EditContent
		}

	case phaseAnswer:
		if p.Usage != nil {
			// last write wins
			r.state.usage = toCompletionUsage(p.Usage)
		}
		switch {
		case p.FinishReason == "stop":
			// The run is not terminated yet: a pending tool-call reassembly
			// may still be required. This payload's content is suppressed.
			r.state.finishSeen = true
		case p.FinishReason != "":
			// Any other finish value also suppresses the content.
		default:
			if !r.answerText(p) {
				r.state.closed = true
				return true
			}
		}

	case phaseOther:
		// Usage sometimes rides on "other" payloads; their text never
		// becomes content.
		if p.Usage != nil {
			r.state.usage = toCompletionUsage(p.Usage)
		}

	case phaseThinking:
		if text := r.thinking(p.DeltaContent); text != "" {
			if !r.sink.Reasoning(text) {
				r.state.closed = true
				return true
			}
		}
	}

	// End-of-run triggers, in priority order. The error trigger fired above.
	switch {
	case r.state.finishSeen && p.Phase != phaseToolCall && r.state.toolMode && len(r.state.fragments) > 0:
		r.closeRun()
		return true
	case p.Done || p.Phase == phaseDone:
		r.closeRun()
		return true
	}
	return false
}

// answerText routes an answer payload's live text: buffered while tool mode
// is active, emitted immediately otherwise. Returns false when the consumer
// stopped pulling.
func (r *run) answerText(p *upstreamPayload) bool {
	text := p.DeltaContent

	// Initial-content special case (non-tool mode only): the first answer
	// payload carrying edit_content opens with a structured prelude; only
	// text after its closing marker is content, empty if the marker is
	// absent.
	if p.EditContent != "" && !r.state.toolMode && !r.state.answerEditSeen {
		r.state.answerEditSeen = true
		text = afterPrelude(p.EditContent)
	}

	if text == "" {
		return true
	}
	if r.state.toolMode {
		r.state.answerBuffer.WriteString(text)
		return true
	}
	return r.sink.Content(text)
}

// afterPrelude returns the text following the prelude's closing marker.
func afterPrelude(text string) string {
	if i := strings.Index(text, blockCloseTag); i >= 0 {
		return text[i+len(blockCloseTag):]
	}
	return ""
}

// closeStop emits a bare stop terminal. Used for error-close and stream
// faults; it skips reassembly and buffer flushing so nothing further is
// processed. Idempotent.
func (r *run) closeStop() {
	if r.state.closed {
		return
	}
	r.state.closed = true
	r.sink.Finish(types.FinishReasonStop, r.state.usage)
}

// closeRun emits the run's terminal sequence: pending tool-call reassembly
// when tool mode accumulated fragments, otherwise a flush of withheld text
// and a stop finish. Idempotent; a second attempt is a no-op.
func (r *run) closeRun() {
	if r.state.closed {
		return
	}
	r.state.closed = true

	if r.state.toolMode && len(r.state.fragments) > 0 {
		invocations := reassembleFragments(r.state.fragments, r.splice)
		if len(invocations) == 0 && r.fragmentFallback != nil {
			invocations = r.fragmentFallback(joinFragments(r.state.fragments))
		}
		if len(invocations) > 0 {
			if !r.sink.ToolCalls(invocations) {
				return
			}
			r.sink.Finish(types.FinishReasonToolCalls, r.state.usage)
			return
		}
	}

	r.flushAndStop()
}

// flushAndStop releases any withheld answer text and finishes the run. As a
// last resort the buffered text is scanned for an inline tool-call encoding
// before being emitted as plain content.
func (r *run) flushAndStop() {
	buffered := r.state.answerBuffer.String()
	if buffered != "" {
		if r.inline != nil {
			if invocations := r.inline(buffered); len(invocations) > 0 {
				if !r.sink.ToolCalls(invocations) {
					return
				}
				r.sink.Finish(types.FinishReasonToolCalls, r.state.usage)
				return
			}
		}
		// Emit cleaned text: a malformed block the extractor could not
		// resolve is stripped rather than shown to the client.
		content := buffered
		if strings.Contains(buffered, blockTagPrefix) {
			content = stripBlocks(buffered)
		}
		if content != "" && !r.sink.Content(content) {
			return
		}
	}
	r.sink.Finish(types.FinishReasonStop, r.state.usage)
}

// joinFragments concatenates fragment text in index order.
func joinFragments(fragments map[int]string) string {
	var b strings.Builder
	for _, idx := range slices.Sorted(maps.Keys(fragments)) {
		b.WriteString(fragments[idx])
	}
	return b.String()
}
