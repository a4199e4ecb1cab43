package request

import (
	"encoding/json"
	"testing"

	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	req := New(
		message.NewText(role.User, "hello"),
		message.NewText(role.Assistant, "hi"),
	)

	assert.Len(t, req.Messages, 2)
	assert.Nil(t, req.System)
	assert.Nil(t, req.Tools)
}

func TestModelRequest_SystemText(t *testing.T) {
	req := New(message.NewText(role.User, "hello"))
	assert.Empty(t, req.SystemText())

	sys := message.NewText(role.System, "be concise")
	req.System = &sys
	assert.Equal(t, "be concise", req.SystemText())
}

func TestModelRequest_Functions(t *testing.T) {
	req := New(message.NewText(role.User, "hi"))
	req.Tools = []tool.Tool{
		tool.NewFunctions(tool.Function{Name: "a"}),
		tool.NewGeminiTool(json.RawMessage(`{"google_search":{}}`)),
		tool.NewFunctions(tool.Function{Name: "b"}),
	}

	fns := req.Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "a", fns[0].Name)
	assert.Equal(t, "b", fns[1].Name)
}

func TestModelRequest_JSONRoundtrip(t *testing.T) {
	sys := message.NewText(role.System, "be brief")
	req := ModelRequest{
		Messages: []message.Message{message.NewText(role.User, "hello")},
		System:   &sys,
		Tools:    []tool.Tool{tool.NewFunctions(tool.Function{Name: "search"})},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var got ModelRequest
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Messages, 1)
	assert.True(t, req.Messages[0].Equal(got.Messages[0]))
	require.NotNil(t, got.System)
	assert.Equal(t, "be brief", got.SystemText())
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "search", got.Tools[0].Functions[0].Name)
}
