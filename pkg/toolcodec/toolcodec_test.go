package toolcodec_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_TextParts(t *testing.T) {
	parts := []content.Part{
		content.Text{Text: "Hello world"},
		content.Text{Text: "Second message"},
	}

	encoded, err := toolcodec.Encode("test_tool", parts, nil)
	require.NoError(t, err)

	name, decoded, ext, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "test_tool", name)
	assert.True(t, content.EqualParts(parts, decoded))
	assert.Empty(t, ext)
}

func TestEncodeDecode_MixedParts(t *testing.T) {
	parts := []content.Part{
		content.Text{Text: "Result:"},
		content.NewBlobBase64("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==", "image/png"),
	}

	encoded, err := toolcodec.Encode("image_tool", parts, nil)
	require.NoError(t, err)

	name, decoded, _, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image_tool", name)
	assert.True(t, content.EqualParts(parts, decoded))
}

func TestEncodeDecode_NestedToolResults(t *testing.T) {
	inner := content.ToolResult{
		ID:   "inner_1",
		Name: "sub_tool",
		Parts: []content.Part{
			content.Text{Text: "inner text"},
			content.ToolUse{ID: "u1", Name: "nested_use", Args: json.RawMessage(`{"deep":true}`)},
		},
	}
	parts := []content.Part{
		content.Text{Text: "outer"},
		inner,
		content.Opaque{Provider: "gemini", Kind: "executable_code", Payload: json.RawMessage(`{"language":"PYTHON"}`)},
	}

	encoded, err := toolcodec.Encode("outer_tool", parts, nil)
	require.NoError(t, err)

	name, decoded, _, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "outer_tool", name)
	assert.True(t, content.EqualParts(parts, decoded))
}

func TestEncodeDecode_EmptyParts(t *testing.T) {
	encoded, err := toolcodec.Encode("empty_tool", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, encoded, `"content":[]`)

	name, decoded, ext, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "empty_tool", name)
	assert.Empty(t, decoded)
	assert.Empty(t, ext)
}

func TestEncodeDecode_Ext(t *testing.T) {
	ext := content.Ext{}.SetBool("mcp", "is_error", true)

	encoded, err := toolcodec.Encode("failing_tool", []content.Part{content.Text{Text: "boom"}}, ext)
	require.NoError(t, err)

	_, _, gotExt, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	isErr, ok := gotExt.GetBool("mcp", "is_error")
	require.True(t, ok)
	assert.True(t, isErr)
}

func TestEncodeDecode_LargeBase64Payload(t *testing.T) {
	payload := strings.Repeat("QUJDRA==", 64*1024) // 512KB of base64 text
	parts := []content.Part{content.NewBlobBase64(payload, "image/png")}

	encoded, err := toolcodec.Encode("big_blob", parts, nil)
	require.NoError(t, err)

	name, decoded, _, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "big_blob", name)
	require.Len(t, decoded, 1)
	assert.True(t, content.EqualParts(parts, decoded), "large base64 blob must survive encode/decode intact")
}

func TestEncodeDecode_UnicodeText(t *testing.T) {
	parts := []content.Part{content.Text{Text: "日本語 🚀 émojis Ñ"}}

	encoded, err := toolcodec.Encode("unicode_tool", parts, nil)
	require.NoError(t, err)

	_, decoded, _, err := toolcodec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "日本語 🚀 émojis Ñ", decoded[0].(content.Text).Text)
}

func TestEncode_EnvelopeShape(t *testing.T) {
	encoded, err := toolcodec.Encode("shape_tool", []content.Part{content.Text{Text: "x"}}, nil)
	require.NoError(t, err)

	var env map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(encoded), &env))

	payload, ok := env[toolcodec.EnvelopeKey]
	require.True(t, ok)
	assert.Contains(t, payload, "name")
	assert.Contains(t, payload, "content")
	assert.NotContains(t, payload, "ext")
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, _, _, err := toolcodec.Decode("invalid json")
	require.Error(t, err)
}

func TestDecode_MissingEnvelope(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"invalid": "structure"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ai_ox_tool_result")
}

func TestDecode_EnvelopeNotObject(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"ai_ox_tool_result": "just a string"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ai_ox_tool_result")
}

func TestDecode_NameNotString(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"ai_ox_tool_result": {"name": 123, "content": []}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool result missing name")
}

func TestDecode_MissingName(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"ai_ox_tool_result": {"content": []}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool result missing name")
}

func TestDecode_MissingContent(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"ai_ox_tool_result": {"name": "t"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool result missing content")
}

func TestDecode_BadNestedPart(t *testing.T) {
	_, _, _, err := toolcodec.Decode(`{"ai_ox_tool_result": {"name": "t", "content": [{"type": "hologram"}]}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool result part 0")
}

func TestIsEncoded(t *testing.T) {
	encoded, err := toolcodec.Encode("guard_tool", []content.Part{content.Text{Text: "x"}}, nil)
	require.NoError(t, err)

	assert.True(t, toolcodec.IsEncoded(encoded))
	assert.False(t, toolcodec.IsEncoded("plain tool output"))
	assert.False(t, toolcodec.IsEncoded(`{"ai_ox_tool_result": {"name": 1, "content": []}}`))
	assert.False(t, toolcodec.IsEncoded(`{"other": "json"}`))
}

func TestHasEnvelope(t *testing.T) {
	encoded, err := toolcodec.Encode("guard_tool", []content.Part{content.Text{Text: "x"}}, nil)
	require.NoError(t, err)

	assert.True(t, toolcodec.HasEnvelope(encoded))
	assert.True(t, toolcodec.HasEnvelope(`{"ai_ox_tool_result": {"name": 1, "content": []}}`), "malformed payload still has the envelope shape")
	assert.False(t, toolcodec.HasEnvelope("plain tool output"))
	assert.False(t, toolcodec.HasEnvelope(`{"other": "json"}`))
	assert.False(t, toolcodec.HasEnvelope(`["ai_ox_tool_result"]`))
}
