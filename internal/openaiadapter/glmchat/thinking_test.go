package glmchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultThinkingTransform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty", "", ""},
		{"Plain", "just a thought", "just a thought"},
		{"QuotePrefixes", "> first line\n> second line", "first line\nsecond line"},
		{"DetailsEnvelope", "<details><summary>Thinking</summary>core</details>", "core"},
		{"DetailsWithoutSummary", "<details>core</details>", "core"},
		{"MixedMarkup", "<details><summary>t</summary>> quoted</details>", "quoted"},
		// Markup split across delta boundaries passes through untouched
		// until the closing piece arrives in a later delta.
		{"SplitTagFragment", "<det", "<det"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, defaultThinkingTransform(tt.in))
		})
	}
}
