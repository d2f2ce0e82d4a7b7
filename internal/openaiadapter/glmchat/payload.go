package glmchat

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Upstream phases classifying a payload's content role. Interpretation of
// every other payload field is governed by the phase.
const (
	phaseThinking = "thinking"
	phaseAnswer   = "answer"
	phaseToolCall = "tool_call"
	phaseOther    = "other"
	phaseDone     = "done"
	phaseUnknown  = "unknown"
)

// upstreamError is an error object found at any of the three documented
// positions in a payload.
type upstreamError struct {
	// Code is kept raw: upstreams disagree on whether it is a number or a
	// string.
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// upstreamUsage is GLM's token accounting object. Field names match
// OpenAI's, which is no accident upstream.
type upstreamUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// upstreamPayload is a decoded phase-tagged GLM payload.
type upstreamPayload struct {
	Type         string
	Phase        string
	DeltaContent string
	EditContent  string
	EditIndex    int
	Done         bool
	FinishReason string
	Usage        *upstreamUsage
	DataErr      *upstreamError
	InnerErr     *upstreamError
	TopErr       *upstreamError
}

// firstError returns the first error present in documented precedence
// order: top-level, data-level, nested inner. Nil when the payload carries
// no error.
func (p *upstreamPayload) firstError() *upstreamError {
	switch {
	case p.TopErr != nil:
		return p.TopErr
	case p.DataErr != nil:
		return p.DataErr
	case p.InnerErr != nil:
		return p.InnerErr
	default:
		return nil
	}
}

// upstreamEnvelope is the expected payload shape for the strict decode path.
type upstreamEnvelope struct {
	Type string `json:"type"`
	Data struct {
		DeltaContent string         `json:"delta_content"`
		EditContent  string         `json:"edit_content"`
		Phase        string         `json:"phase"`
		EditIndex    *int           `json:"edit_index"`
		Done         bool           `json:"done"`
		FinishReason string         `json:"finish_reason"`
		Usage        *upstreamUsage `json:"usage"`
		Error        *upstreamError `json:"error"`
		Inner        *struct {
			Error *upstreamError `json:"error"`
		} `json:"inner"`
	} `json:"data"`
	Error *upstreamError `json:"error"`
}

// decodePayload validates a data record against the expected envelope shape.
// On mismatch it recovers by probing the known field paths individually and
// defaulting the rest; a shape mismatch never drops the record. The returned
// flag reports whether the strict path succeeded.
func decodePayload(raw string) (upstreamPayload, bool) {
	var env upstreamEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		p := upstreamPayload{
			Type:         env.Type,
			Phase:        normalizePhase(env.Data.Phase),
			DeltaContent: env.Data.DeltaContent,
			EditContent:  env.Data.EditContent,
			Done:         env.Data.Done,
			FinishReason: env.Data.FinishReason,
			Usage:        env.Data.Usage,
			DataErr:      env.Data.Error,
			TopErr:       env.Error,
		}
		if env.Data.EditIndex != nil {
			p.EditIndex = *env.Data.EditIndex
		}
		if env.Data.Inner != nil {
			p.InnerErr = env.Data.Inner.Error
		}
		return p, true
	}

	return recoverPayload(raw), false
}

// recoverPayload performs best-effort extraction of the known field paths
// from a payload that failed strict validation.
func recoverPayload(raw string) upstreamPayload {
	p := upstreamPayload{
		Type:         gjson.Get(raw, "type").String(),
		Phase:        normalizePhase(gjson.Get(raw, "data.phase").String()),
		DeltaContent: gjson.Get(raw, "data.delta_content").String(),
		EditContent:  gjson.Get(raw, "data.edit_content").String(),
		EditIndex:    int(gjson.Get(raw, "data.edit_index").Int()),
		Done:         gjson.Get(raw, "data.done").Bool(),
		FinishReason: gjson.Get(raw, "data.finish_reason").String(),
	}
	if v := gjson.Get(raw, "data.usage"); v.IsObject() {
		p.Usage = &upstreamUsage{
			PromptTokens:     int(v.Get("prompt_tokens").Int()),
			CompletionTokens: int(v.Get("completion_tokens").Int()),
			TotalTokens:      int(v.Get("total_tokens").Int()),
		}
	}
	p.TopErr = recoverError(gjson.Get(raw, "error"))
	p.DataErr = recoverError(gjson.Get(raw, "data.error"))
	p.InnerErr = recoverError(gjson.Get(raw, "data.inner.error"))
	return p
}

func recoverError(v gjson.Result) *upstreamError {
	if !v.Exists() {
		return nil
	}
	e := &upstreamError{Message: v.Get("message").String()}
	if code := v.Get("code"); code.Exists() {
		e.Code = json.RawMessage(code.Raw)
	}
	if e.Message == "" && v.Type == gjson.String {
		// Some upstreams put a bare string where the error object belongs.
		e.Message = v.String()
	}
	return e
}

// normalizePhase maps the empty phase to "unknown". Unrecognized phase
// strings pass through; the state machine treats them like "unknown".
func normalizePhase(phase string) string {
	if phase == "" {
		return phaseUnknown
	}
	return phase
}
