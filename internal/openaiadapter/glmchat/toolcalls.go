package glmchat

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// Tool-call block delimiters. A block is an embedded JSON document wrapped
// in <glm_block view=""> ... </glm_block>; fragments are matched on the tag
// name alone so attribute drift upstream does not break reassembly.
const (
	blockTagPrefix = "<glm_block"
	blockCloseTag  = "</glm_block>"
)

// SplicePolicy locates the cut point between a tool call's arguments and the
// upstream-echoed result section inside an accumulating block. Everything
// from the boundary on is discarded before the closing fragment is appended.
//
// The default is a textual marker tied to one exact upstream serialization;
// it is kept behind this interface so a protocol revision swaps one value
// instead of rewriting the reassembler.
type SplicePolicy interface {
	// Cut returns the accumulation truncated at the boundary, or unchanged
	// when no boundary is present.
	Cut(accumulated string) string
}

// spliceAtMarker cuts at the first occurrence of a fixed marker.
type spliceAtMarker string

func (m spliceAtMarker) Cut(accumulated string) string {
	if i := strings.Index(accumulated, string(m)); i >= 0 {
		return accumulated[:i]
	}
	return accumulated
}

// DefaultSplicePolicy matches the `,"result"` key that upstream splices
// between a block's arguments and its echoed result.
var DefaultSplicePolicy SplicePolicy = spliceAtMarker(`,"result"`)

// ToolInvocation is one resolved tool call: id, function name, and the
// arguments as JSON text. At most one canonical instance exists per id.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments string
}

// generatedIDCounter disambiguates fallback ids minted within the same
// nanosecond.
var generatedIDCounter atomic.Int64

func generatedCallID() string {
	return fmt.Sprintf("call_%d_%d", time.Now().UnixNano(), generatedIDCounter.Add(1))
}

// reassembleFragments merges the run's indexed fragments into resolved
// invocations. Fragments are ordered by index, never by arrival: any
// permutation of the same (index, text) set yields the same result.
//
// Only the first accumulated block is parsed. Later blocks in the same batch
// are intentionally not reassembled by this path; the aggregate fallback in
// collectArgumentsByID covers the known upstream shapes that need more.
func reassembleFragments(fragments map[int]string, splice SplicePolicy) []ToolInvocation {
	block := assembleFirstBlock(fragments, splice)
	if block == "" {
		return nil
	}
	return parseBlocks(block)
}

// assembleFirstBlock walks fragments in index order, accumulating block
// text. A fragment opening a new block flushes the previous accumulation; a
// closing fragment is appended after the open accumulation is truncated at
// the argument/result boundary.
func assembleFirstBlock(fragments map[int]string, splice SplicePolicy) string {
	if splice == nil {
		splice = DefaultSplicePolicy
	}

	var blocks []string
	var current string
	open := false

	for _, idx := range slices.Sorted(maps.Keys(fragments)) {
		text := fragments[idx]
		trimmed := strings.TrimSpace(text)
		switch {
		case strings.HasPrefix(trimmed, blockTagPrefix):
			if open && current != "" {
				blocks = append(blocks, current)
			}
			current = text
			open = true
		case open && strings.HasSuffix(trimmed, blockCloseTag):
			current = splice.Cut(current) + text
		}
	}
	if open && current != "" {
		blocks = append(blocks, current)
	}

	if len(blocks) == 0 {
		return ""
	}
	return blocks[0]
}

// parseBlocks scans content for every tool-call block and resolves each
// block's metadata into an invocation. A malformed individual block is
// skipped, not fatal.
func parseBlocks(content string) []ToolInvocation {
	var out []ToolInvocation
	for _, inner := range scanBlockBodies(content) {
		if inv, ok := parseBlockBody(inner); ok {
			out = append(out, inv)
		}
	}
	return out
}

// scanBlockBodies returns the inner text of every block tag occurrence in
// content. A block missing its closing tag yields the remainder of the
// content; the JSON parse decides whether that salvages anything.
func scanBlockBodies(content string) []string {
	var bodies []string
	rest := content
	for {
		start := strings.Index(rest, blockTagPrefix)
		if start < 0 {
			return bodies
		}
		rest = rest[start+len(blockTagPrefix):]
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			return bodies
		}
		rest = rest[gt+1:]

		if end := strings.Index(rest, blockCloseTag); end >= 0 {
			bodies = append(bodies, rest[:end])
			rest = rest[end+len(blockCloseTag):]
		} else {
			bodies = append(bodies, rest)
			return bodies
		}
	}
}

// parseBlockBody resolves one block's JSON into an invocation. Metadata
// lives at .data.metadata or .metadata depending on upstream wrapping.
func parseBlockBody(inner string) (ToolInvocation, bool) {
	inner = strings.TrimSpace(inner)
	if !gjson.Valid(inner) {
		return ToolInvocation{}, false
	}

	meta := gjson.Get(inner, "data.metadata")
	if !meta.Exists() {
		meta = gjson.Get(inner, "metadata")
	}
	if !meta.Exists() {
		return ToolInvocation{}, false
	}

	inv := ToolInvocation{
		ID:        meta.Get("id").String(),
		Name:      meta.Get("name").String(),
		Arguments: normalizeArguments(meta.Get("arguments")),
	}
	if inv.ID == "" {
		inv.ID = generatedCallID()
	}
	if inv.Name == "" {
		inv.Name = "unknown"
	}
	return inv, true
}

// normalizeArguments turns the metadata arguments value into JSON text.
// A quoted string holding an escaped JSON document is unescaped exactly
// once; plain JSON is used as-is; any parse failure collapses to "{}".
func normalizeArguments(v gjson.Result) string {
	switch {
	case !v.Exists():
		return "{}"
	case v.Type == gjson.String:
		s := v.String()
		if json.Valid([]byte(s)) {
			return s
		}
		return "{}"
	case v.IsObject() || v.IsArray():
		return v.Raw
	default:
		return "{}"
	}
}

// collectArgumentsByID is the aggregate-path fallback for upstreams that
// split one call's arguments across repeated same-id blocks instead of
// indexed fragments. It takes the first block's id and name, then collects
// every arguments fragment sharing that id — plus any fragment with an empty
// id, treated as a continuation — concatenating in scan order. If that still
// yields nothing it falls back to a direct text search for an "arguments"
// field in the raw content.
func collectArgumentsByID(content string) []ToolInvocation {
	bodies := scanBlockBodies(content)
	if len(bodies) == 0 {
		return nil
	}

	first := strings.TrimSpace(bodies[0])
	meta := gjson.Get(first, "data.metadata")
	if !meta.Exists() {
		meta = gjson.Get(first, "metadata")
	}
	id := meta.Get("id").String()
	name := meta.Get("name").String()
	if name == "" {
		name = "unknown"
	}

	var args strings.Builder
	for _, body := range bodies {
		body = strings.TrimSpace(body)
		if !gjson.Valid(body) {
			continue
		}
		m := gjson.Get(body, "data.metadata")
		if !m.Exists() {
			m = gjson.Get(body, "metadata")
		}
		if !m.Exists() {
			continue
		}
		blockID := m.Get("id").String()
		if blockID != id && blockID != "" {
			continue
		}
		if v := m.Get("arguments"); v.Exists() {
			if v.Type == gjson.String {
				args.WriteString(v.String())
			} else {
				args.WriteString(v.Raw)
			}
		}
	}

	arguments := args.String()
	if arguments == "" {
		arguments = searchArgumentsField(content)
	}
	if arguments == "" {
		return nil
	}
	if !json.Valid([]byte(arguments)) {
		arguments = "{}"
	}
	if id == "" {
		id = generatedCallID()
	}
	return []ToolInvocation{{ID: id, Name: name, Arguments: arguments}}
}

// searchArgumentsField extracts the first "arguments" value found anywhere
// in raw content, without requiring well-formed blocks around it.
func searchArgumentsField(content string) string {
	idx := strings.Index(content, `"arguments"`)
	if idx < 0 {
		return ""
	}
	rest := content[idx+len(`"arguments"`):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return ""
	}

	dec := json.NewDecoder(strings.NewReader(rest[colon+1:]))
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		if json.Valid([]byte(val)) {
			return val
		}
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// InlineToolCallExtractor recovers invocations from plain buffered answer
// text when the upstream never produced indexed fragments. It is a
// best-effort last resort; returning nil means the buffered text is ordinary
// content.
type InlineToolCallExtractor func(text string) []ToolInvocation

// defaultInlineExtractor scans the buffered text for inline tool-call
// blocks.
func defaultInlineExtractor(text string) []ToolInvocation {
	if !strings.Contains(text, blockTagPrefix) {
		return nil
	}
	return parseBlocks(text)
}

// stripBlocks removes every tool-call block from text, returning the
// cleaned remainder for content emission.
func stripBlocks(text string) string {
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, blockTagPrefix)
		if start < 0 {
			b.WriteString(rest)
			return strings.TrimSpace(b.String())
		}
		b.WriteString(rest[:start])
		rest = rest[start:]
		end := strings.Index(rest, blockCloseTag)
		if end < 0 {
			return strings.TrimSpace(b.String())
		}
		rest = rest[end+len(blockCloseTag):]
	}
}
