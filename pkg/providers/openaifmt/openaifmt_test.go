package openaifmt_test

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/lingua/pkg/providers/openaifmt"
)

func TestMessage_NilContentSerializesAsNull(t *testing.T) {
	msg := openaifmt.Message{
		Role: "assistant",
		ToolCalls: []openaifmt.ToolCall{
			{ID: "call_1", Type: "function", Function: openaifmt.FunctionCall{Name: "lookup_user", Arguments: "{}"}},
		},
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"content":null`)
	assert.NotContains(t, string(raw), `"tool_call_id"`)
	assert.Contains(t, string(raw), `"function":{"name":"lookup_user","arguments":"{}"}`)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var calls []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["tool_calls"], &calls))
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0], "name", "tool call name must nest under function")
}

func TestMessage_ToolRoleCarriesCallID(t *testing.T) {
	msg := openaifmt.Message{
		Role:       "tool",
		Content:    lo.ToPtr(`{"ok":true}`),
		Name:       "lookup_user",
		ToolCallID: "call_1",
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"tool_call_id":"call_1"`)
	assert.Contains(t, string(raw), `"name":"lookup_user"`)
}

func TestChatRequest_OptionalFieldsOmitted(t *testing.T) {
	req := openaifmt.ChatRequest{
		Model:    "gpt-4o",
		Messages: []openaifmt.Message{{Role: "user", Content: lo.ToPtr("hi")}},
	}

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "temperature")
	assert.NotContains(t, string(raw), "max_tokens")
	assert.NotContains(t, string(raw), "tool_choice")
	assert.NotContains(t, string(raw), "stream")
}

func TestToolChoiceFunction(t *testing.T) {
	raw := openaifmt.ToolChoiceFunction("lookup")
	assert.JSONEq(t, `{"type":"function","function":{"name":"lookup"}}`, string(raw))
}

func TestStreamChunk_Decode(t *testing.T) {
	payload := `{
		"id": "chatcmpl-1",
		"object": "chat.completion.chunk",
		"created": 1736899200,
		"model": "gpt-4o",
		"choices": [
			{"index": 0, "delta": {"tool_calls": [{"index": 0, "id": "call_1", "function": {"name": "lookup_user", "arguments": "{\"a\""}}]}},
			{"index": 0, "delta": {"tool_calls": [{"index": 0, "function": {"arguments": ":1}"}}]}, "finish_reason": "tool_calls"}
		]
	}`

	var chunk openaifmt.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(payload), &chunk))

	require.Len(t, chunk.Choices, 2)
	first := chunk.Choices[0].Delta.ToolCalls[0]
	assert.Equal(t, "call_1", first.ID)
	assert.Equal(t, "lookup_user", first.Function.Name)

	second := chunk.Choices[1].Delta.ToolCalls[0]
	assert.Empty(t, second.ID)
	assert.Equal(t, ":1}", second.Function.Arguments)
	require.NotNil(t, chunk.Choices[1].FinishReason)
	assert.Equal(t, "tool_calls", *chunk.Choices[1].FinishReason)
}
