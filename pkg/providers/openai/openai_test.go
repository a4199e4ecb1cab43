package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/openai"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *openai.Adapter) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := openai.New(srv.URL, "test-key", "gpt-4")

	return srv, a
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func TestComplete_SimpleText(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		req := readBody(t, r)

		assert.Equal(t, "gpt-4", req["model"])

		msgs, ok := req["messages"].([]any)
		assert.True(t, ok)
		assert.Len(t, msgs, 2) // system + user

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		text := "Hello there!"
		writeJSON(t, w, map[string]any{
			"model": "gpt-4",
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": text},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
			},
		})
	})

	sys := message.NewText(role.System, "You are helpful.")
	req := request.New(message.NewText(role.User, "Hi"))
	req.System = &sys

	resp, err := adapter.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, role.Assistant, resp.Message.Role)
	assert.Equal(t, "Hello there!", resp.Message.TextContent())
	assert.Equal(t, "openai", resp.VendorName)
	assert.Equal(t, "gpt-4", resp.ModelName)

	last, ok := adapter.Usage.Last()
	require.True(t, ok)
	assert.EqualValues(t, 10, last.InputTokens())
	assert.EqualValues(t, 5, last.OutputTokens())
}

func TestComplete_MultiTurn(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		msgs, ok := req["messages"].([]any)
		assert.True(t, ok)
		assert.Len(t, msgs, 4) // system + user + assistant + user

		text := "The capital of France is Paris."
		writeJSON(t, w, map[string]any{
			"model": "gpt-4",
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": text},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 10},
		})
	})

	sys := message.NewText(role.System, "You are helpful.")
	req := request.New(
		message.NewText(role.User, "What is the capital of France?"),
		message.NewText(role.Assistant, "Let me think..."),
		message.NewText(role.User, "Please answer."),
	)
	req.System = &sys

	resp, err := adapter.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", resp.Message.TextContent())
}

func TestComplete_ToolCall(t *testing.T) {
	callCount := 0

	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		callCount++

		req := readBody(t, r)

		if callCount == 1 {
			tools, ok := req["tools"].([]any)
			assert.True(t, ok)
			assert.Len(t, tools, 1)

			decl, _ := tools[0].(map[string]any)
			assert.Equal(t, "function", decl["type"])

			fn, _ := decl["function"].(map[string]any)
			assert.Equal(t, "get_weather", fn["name"])

			writeJSON(t, w, map[string]any{
				"model": "gpt-4",
				"choices": []map[string]any{
					{
						"message": map[string]any{
							"role":    "assistant",
							"content": nil,
							"tool_calls": []map[string]any{
								{
									"id":   "call_1",
									"type": "function",
									"function": map[string]any{
										"name":      "get_weather",
										"arguments": `{"city":"Paris"}`,
									},
								},
							},
						},
						"finish_reason": "tool_calls",
					},
				},
				"usage": map[string]any{"prompt_tokens": 15, "completion_tokens": 8},
			})
		} else {
			msgs, ok := req["messages"].([]any)
			assert.True(t, ok)
			assert.GreaterOrEqual(t, len(msgs), 3)

			lastMsg, _ := msgs[len(msgs)-1].(map[string]any)
			assert.Equal(t, "tool", lastMsg["role"])
			assert.Equal(t, "call_1", lastMsg["tool_call_id"])

			envelope, _ := lastMsg["content"].(string)
			assert.True(t, toolcodec.IsEncoded(envelope))

			text := "The weather in Paris is sunny."
			writeJSON(t, w, map[string]any{
				"model": "gpt-4",
				"choices": []map[string]any{
					{
						"message":       map[string]any{"role": "assistant", "content": text},
						"finish_reason": "stop",
					},
				},
				"usage": map[string]any{"prompt_tokens": 25, "completion_tokens": 12},
			})
		}
	})

	req := request.New(message.NewText(role.User, "What's the weather in Paris?"))
	req.Tools = []tool.Tool{tool.NewFunctions(tool.Function{
		Name:        "get_weather",
		Description: "Get weather for a city",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
	})}

	resp, err := adapter.Complete(context.Background(), req)
	require.NoError(t, err)

	calls := resp.Message.ToolUses()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Paris"}`, string(calls[0].Args))

	req.Messages = append(req.Messages, resp.Message)
	req.Messages = append(req.Messages, message.New(role.Tool, content.ToolResult{
		ID:    "call_1",
		Name:  "get_weather",
		Parts: []content.Part{content.NewText(`{"temp": "22C", "condition": "sunny"}`)},
	}))

	resp, err = adapter.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "The weather in Paris is sunny.", resp.Message.TextContent())

	total := adapter.Usage.Total()
	assert.EqualValues(t, 40, total.InputTokens())
	assert.EqualValues(t, 20, total.OutputTokens())
	assert.EqualValues(t, 2, total.Requests)
}

func TestComplete_EmptyChoices(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{},
			"usage":   map[string]any{"prompt_tokens": 5, "completion_tokens": 0},
		})
	})

	_, err := adapter.Complete(context.Background(), request.New(message.NewText(role.User, "Hi")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestComplete_HTTPError(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	})

	_, err := adapter.Complete(context.Background(), request.New(message.NewText(role.User, "Hi")))
	require.Error(t, err)

	var rle *modeladapter.RateLimitError
	assert.ErrorAs(t, err, &rle)
}
