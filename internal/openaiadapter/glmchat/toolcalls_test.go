package glmchat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestDefaultSplicePolicy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"arguments":"{}"}`, DefaultSplicePolicy.Cut(`{"arguments":"{}"},"result":{"echo":1}`))
	assert.Equal(t, "no marker here", DefaultSplicePolicy.Cut("no marker here"))
}

func TestReassembleFragmentsSingleCompleteBlock(t *testing.T) {
	t.Parallel()

	fragments := map[int]string{
		0: `<glm_block view="">{"metadata":{"id":"call_1","name":"get_weather","arguments":"{\"city\":\"Berlin\"}"}}</glm_block>`,
	}

	invocations := reassembleFragments(fragments, nil)
	require.Len(t, invocations, 1)
	assert.Equal(t, "call_1", invocations[0].ID)
	assert.Equal(t, "get_weather", invocations[0].Name)
	assert.Equal(t, `{"city":"Berlin"}`, invocations[0].Arguments)
}

func TestReassembleFragmentsSplicesResultSection(t *testing.T) {
	t.Parallel()

	// The open fragment carries an echoed result section that must be cut
	// before the closing fragment is appended.
	fragments := map[int]string{
		0: `<glm_block view="">{"metadata":{"id":"call_1","name":"get_weather","arguments":"{\"city\":\"Berlin\"}"},"result":{"status":"pending"`,
		1: `}</glm_block>`,
	}

	invocations := reassembleFragments(fragments, nil)
	require.Len(t, invocations, 1)
	assert.Equal(t, "call_1", invocations[0].ID)
	assert.Equal(t, `{"city":"Berlin"}`, invocations[0].Arguments)
}

func TestReassembleFragmentsIndexOrderGovernsAssembly(t *testing.T) {
	t.Parallel()

	open := `<glm_block view="">{"metadata":{"id":"c1","name":"f","arguments":"{}"}`
	closing := `}</glm_block>`

	// Close after open in index order: the block completes.
	got := reassembleFragments(map[int]string{2: open, 5: closing}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	// Close before open in index order: it belongs to no open block and is
	// dropped, leaving the open fragment unterminated and unparseable.
	got = reassembleFragments(map[int]string{5: open, 2: closing}, nil)
	assert.Empty(t, got)
}

func TestReassembleFragmentsKeepsFirstBlockOnly(t *testing.T) {
	t.Parallel()

	fragments := map[int]string{
		0: `<glm_block view="">{"metadata":{"id":"c1","name":"first","arguments":"{}"}}</glm_block>`,
		1: `<glm_block view="">{"metadata":{"id":"c2","name":"second","arguments":"{}"}}</glm_block>`,
	}

	invocations := reassembleFragments(fragments, nil)
	require.Len(t, invocations, 1)
	assert.Equal(t, "first", invocations[0].Name)
}

func TestReassembleFragmentsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, reassembleFragments(map[int]string{}, nil))
	// Fragments with no block tags assemble to nothing.
	assert.Empty(t, reassembleFragments(map[int]string{0: "plain text"}, nil))
}

func TestParseBlockBody(t *testing.T) {
	t.Parallel()

	t.Run("WrappedMetadata", func(t *testing.T) {
		t.Parallel()
		inv, ok := parseBlockBody(`{"data":{"metadata":{"id":"c1","name":"f","arguments":"{\"a\":1}"}}}`)
		require.True(t, ok)
		assert.Equal(t, "c1", inv.ID)
		assert.Equal(t, `{"a":1}`, inv.Arguments)
	})

	t.Run("TopLevelMetadata", func(t *testing.T) {
		t.Parallel()
		inv, ok := parseBlockBody(`{"metadata":{"id":"c2","name":"g","arguments":{"b":true}}}`)
		require.True(t, ok)
		assert.Equal(t, "c2", inv.ID)
		assert.Equal(t, `{"b":true}`, inv.Arguments)
	})

	t.Run("MissingIDAndName", func(t *testing.T) {
		t.Parallel()
		inv, ok := parseBlockBody(`{"metadata":{"arguments":{"a":1}}}`)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(inv.ID, "call_"))
		assert.Equal(t, "unknown", inv.Name)
	})

	t.Run("NoMetadata", func(t *testing.T) {
		t.Parallel()
		_, ok := parseBlockBody(`{"other":true}`)
		assert.False(t, ok)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		t.Parallel()
		_, ok := parseBlockBody(`{"metadata":`)
		assert.False(t, ok)
	})
}

func TestArgumentsUnescapedExactlyOnce(t *testing.T) {
	t.Parallel()

	// Arguments containing their own escapes must survive the round trip
	// byte for byte after one unescaping.
	original := `{"q":"say \"hi\"","n":1}`
	body, err := json.Marshal(map[string]any{
		"metadata": map[string]any{"id": "c1", "name": "f", "arguments": original},
	})
	require.NoError(t, err)

	inv, ok := parseBlockBody(string(body))
	require.True(t, ok)
	assert.Equal(t, original, inv.Arguments)
}

func TestNormalizeArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"EscapedJSONString", `{"arguments":"{\"x\":1}"}`, `{"x":1}`},
		{"InvalidString", `{"arguments":"not json"}`, "{}"},
		{"PlainObject", `{"arguments":{"x":1}}`, `{"x":1}`},
		{"PlainArray", `{"arguments":[1,2]}`, `[1,2]`},
		{"Number", `{"arguments":7}`, "{}"},
		{"Missing", `{}`, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeArguments(gjson.Get(tt.doc, "arguments"))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanBlockBodies(t *testing.T) {
	t.Parallel()

	content := `intro <glm_block view="">{"a":1}</glm_block> mid <glm_block view="">{"b":2}</glm_block> tail`
	bodies := scanBlockBodies(content)
	require.Len(t, bodies, 2)
	assert.Equal(t, `{"a":1}`, bodies[0])
	assert.Equal(t, `{"b":2}`, bodies[1])

	// An unclosed block yields the remaining content.
	bodies = scanBlockBodies(`<glm_block view="">{"partial":`)
	require.Len(t, bodies, 1)
	assert.Equal(t, `{"partial":`, bodies[0])

	assert.Empty(t, scanBlockBodies("no blocks at all"))
}

func TestCollectArgumentsByID(t *testing.T) {
	t.Parallel()

	block := func(body string) string {
		return `<glm_block view="">` + body + `</glm_block>`
	}

	t.Run("SameIDConcatenation", func(t *testing.T) {
		t.Parallel()
		content := block(`{"metadata":{"id":"c1","name":"f","arguments":"{\"a\":"}}`) +
			block(`{"metadata":{"id":"c1","arguments":"1}"}}`)

		invocations := collectArgumentsByID(content)
		require.Len(t, invocations, 1)
		assert.Equal(t, "c1", invocations[0].ID)
		assert.Equal(t, "f", invocations[0].Name)
		assert.Equal(t, `{"a":1}`, invocations[0].Arguments)
	})

	t.Run("EmptyIDContinuation", func(t *testing.T) {
		t.Parallel()
		content := block(`{"metadata":{"id":"c1","name":"f","arguments":"{\"a\":"}}`) +
			block(`{"metadata":{"arguments":"2}"}}`)

		invocations := collectArgumentsByID(content)
		require.Len(t, invocations, 1)
		assert.Equal(t, `{"a":2}`, invocations[0].Arguments)
	})

	t.Run("ForeignIDSkipped", func(t *testing.T) {
		t.Parallel()
		content := block(`{"metadata":{"id":"c1","name":"f","arguments":"{\"a\":"}}`) +
			block(`{"metadata":{"id":"c2","arguments":"1}"}}`)

		invocations := collectArgumentsByID(content)
		require.Len(t, invocations, 1)
		// The concatenation stays incomplete and collapses to the empty
		// object rather than propagating invalid JSON.
		assert.Equal(t, "{}", invocations[0].Arguments)
	})

	t.Run("TextSearchFallback", func(t *testing.T) {
		t.Parallel()
		content := block(`{"meta":{"arguments":"{\"x\":2}"}}`)

		invocations := collectArgumentsByID(content)
		require.Len(t, invocations, 1)
		assert.Equal(t, `{"x":2}`, invocations[0].Arguments)
		assert.Equal(t, "unknown", invocations[0].Name)
		assert.True(t, strings.HasPrefix(invocations[0].ID, "call_"))
	})

	t.Run("NoBlocks", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, collectArgumentsByID("nothing here"))
	})
}

func TestSearchArgumentsField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"x":2}`, searchArgumentsField(`junk "arguments": "{\"x\":2}" junk`))
	assert.Equal(t, `{"x":2}`, searchArgumentsField(`junk "arguments": {"x":2} junk`))
	assert.Equal(t, "", searchArgumentsField(`no field`))
	assert.Equal(t, "", searchArgumentsField(`"arguments" but no colon`))
	// A quoted value that is not itself JSON is rejected.
	assert.Equal(t, "", searchArgumentsField(`"arguments": "plain words"`))
}

func TestDefaultInlineExtractor(t *testing.T) {
	t.Parallel()

	assert.Nil(t, defaultInlineExtractor("plain answer text"))

	text := `leading <glm_block view="">{"metadata":{"id":"c1","name":"f","arguments":"{}"}}</glm_block>`
	invocations := defaultInlineExtractor(text)
	require.Len(t, invocations, 1)
	assert.Equal(t, "c1", invocations[0].ID)
}

func TestStripBlocks(t *testing.T) {
	t.Parallel()

	text := `before <glm_block view="">{"a":1}</glm_block> after`
	assert.Equal(t, "before  after", stripBlocks(text))

	// An unclosed block is removed to the end of the text.
	assert.Equal(t, "text", stripBlocks(`text <glm_block view="">{"partial":`))

	assert.Equal(t, "untouched", stripBlocks("untouched"))
}

func TestGeneratedCallIDsAreUnique(t *testing.T) {
	t.Parallel()

	a, b := generatedCallID(), generatedCallID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "call_"))
}
