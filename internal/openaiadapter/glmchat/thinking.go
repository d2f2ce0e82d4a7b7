package glmchat

import "strings"

// ThinkingTransform rewrites thinking-phase text before it is emitted as
// reasoning content. The transform runs per delta, so implementations must
// tolerate text split at arbitrary boundaries.
type ThinkingTransform func(text string) string

// defaultThinkingTransform strips the markup GLM wraps around thinking
// text: blockquote prefixes on each line and the <details>/<summary>
// envelope some model versions emit.
func defaultThinkingTransform(text string) string {
	if text == "" {
		return ""
	}

	for _, tag := range []string{"<details>", "</details>"} {
		text = strings.ReplaceAll(text, tag, "")
	}
	if start := strings.Index(text, "<summary>"); start >= 0 {
		if end := strings.Index(text[start:], "</summary>"); end >= 0 {
			text = text[:start] + text[start+end+len("</summary>"):]
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "> ")
	}
	return strings.Join(lines, "\n")
}
