package anthropic_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/providers/anthropic"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
)

func TestConvert_SystemSingleText(t *testing.T) {
	sys := message.NewText(role.System, "Be helpful.")
	req := request.New(message.NewText(role.User, "Hi"))
	req.System = &sys

	wire, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	require.NotNil(t, wire.System)
	assert.Equal(t, "Be helpful.", wire.System.Text)
	assert.Nil(t, wire.System.Blocks)
}

func TestConvert_SystemMultipleTextsBecomeBlocks(t *testing.T) {
	sys := message.New(role.System,
		content.NewText("Be helpful."),
		content.NewText("Answer briefly."),
	)
	req := request.New(message.NewText(role.User, "Hi"))
	req.System = &sys

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	require.NotNil(t, wire.System)
	require.Len(t, wire.System.Blocks, 2)
	assert.Equal(t, "Be helpful.", wire.System.Blocks[0].Text)
}

func TestConvert_ImageWithinLimit(t *testing.T) {
	req := request.New(message.New(role.User,
		content.NewText("describe this"),
		content.NewBlobBase64("aGVsbG8=", "image/png"),
	))

	wire, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	require.Len(t, wire.Messages, 1)
	require.Len(t, wire.Messages[0].Content, 2)

	img := wire.Messages[0].Content[1]
	assert.Equal(t, "image", img.Type)
	require.NotNil(t, img.Source)
	assert.Equal(t, "base64", img.Source.Type)
	assert.Equal(t, "image/png", img.Source.MediaType)
	assert.Equal(t, "aGVsbG8=", img.Source.Data)
}

func TestConvert_ImageOverSizeLimit(t *testing.T) {
	big := strings.Repeat("A", 5*1024*1024+1)
	req := request.New(message.New(role.User, content.NewBlobBase64(big, "image/png")))

	_, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.Error(t, err)
	assert.True(t, plan.HasErrors())

	var tooBig *convert.Base64TooLargeError
	require.ErrorAs(t, err, &tooBig)
	assert.Equal(t, 5*1024*1024, tooBig.MaxSize)
	assert.Equal(t, "anthropic", tooBig.Provider)
}

func TestConvert_UnsupportedMIMEType(t *testing.T) {
	req := request.New(message.New(role.User, content.NewBlobBase64("aGk=", "audio/wav")))

	_, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.Error(t, err)

	var mime *convert.UnsupportedMIMETypeError
	require.ErrorAs(t, err, &mime)
	assert.Equal(t, "audio/wav", mime.MIMEType)
}

func TestConvert_URIBlobRejected(t *testing.T) {
	req := request.New(message.New(role.User,
		content.NewBlobURI("https://example.com/cat.png", "image/png"),
	))

	_, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.Error(t, err)

	var uce *convert.UnsupportedContentError
	require.ErrorAs(t, err, &uce)
	assert.Contains(t, uce.Reason, "URI")
}

func TestConvert_ToolResultDirectMapping(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:   "call_1",
		Name: "screenshot",
		Parts: []content.Part{
			content.NewText("window capture"),
			content.NewBlobBase64("aW1n", "image/png"),
		},
	}))

	wire, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	require.Len(t, wire.Messages, 1)
	assert.Equal(t, "user", wire.Messages[0].Role)

	block := wire.Messages[0].Content[0]
	assert.Equal(t, "tool_result", block.Type)
	assert.Equal(t, "call_1", block.ToolUseID)
	require.Len(t, block.Content, 2)
	assert.Equal(t, "text", block.Content[0].Type)
	assert.Equal(t, "image", block.Content[1].Type)

	for _, a := range plan.Actions() {
		assert.NotEqual(t, convert.Shadow, a.Kind)
	}
}

func TestConvert_ToolResultFlattensUnsupportedParts(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:   "call_1",
		Name: "subagent",
		Parts: []content.Part{
			content.NewText("summary"),
			content.ToolUse{ID: "inner", Name: "search", Args: json.RawMessage(`{"q":"x"}`)},
		},
	}))

	wire, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	block := wire.Messages[0].Content[0]
	require.Len(t, block.Content, 1)
	assert.Equal(t, "text", block.Content[0].Type)
	assert.True(t, toolcodec.IsEncoded(block.Content[0].Text))

	shadowed := false
	for _, a := range plan.Actions() {
		if a.Kind == convert.Shadow {
			shadowed = true
		}
	}
	assert.True(t, shadowed, "flattening must be recorded on the plan")
	assert.True(t, plan.IsLossless(), "flattening keeps every part inside the envelope")
}

func TestConvert_ToolResultErrorFlag(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:    "call_1",
		Name:  "probe",
		Parts: []content.Part{content.NewText("boom")},
		Ext:   content.Ext{}.SetBool("anthropic", "is_error", true),
	}))

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	block := wire.Messages[0].Content[0]
	require.NotNil(t, block.IsError)
	assert.True(t, *block.IsError)
}

func TestConvert_ConsecutiveSameRoleTurnsMerge(t *testing.T) {
	req := request.New(
		message.NewText(role.User, "here is the result"),
		message.New(role.Tool, content.ToolResult{
			ID:    "call_1",
			Name:  "probe",
			Parts: []content.Part{content.NewText("42")},
		}),
		message.NewText(role.Assistant, "Thanks."),
	)

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	require.Len(t, wire.Messages, 2)
	assert.Equal(t, "user", wire.Messages[0].Role)
	require.Len(t, wire.Messages[0].Content, 2)
	assert.Equal(t, "text", wire.Messages[0].Content[0].Type)
	assert.Equal(t, "tool_result", wire.Messages[0].Content[1].Type)
	assert.Equal(t, "assistant", wire.Messages[1].Role)
}

func TestConvert_SystemInMessageListOmitted(t *testing.T) {
	req := request.New(
		message.NewText(role.System, "stray prompt"),
		message.NewText(role.User, "Hi"),
	)

	wire, plan, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	require.Len(t, wire.Messages, 1)
	assert.Equal(t, "user", wire.Messages[0].Role)
	assert.NotEmpty(t, plan.Warnings())
	assert.False(t, plan.IsLossless())
}

func TestConvert_ToolUseWithoutArgs(t *testing.T) {
	req := request.New(message.New(role.Assistant, content.ToolUse{ID: "call_1", Name: "probe"}))

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	block := wire.Messages[0].Content[0]
	assert.Equal(t, "tool_use", block.Type)
	assert.Equal(t, json.RawMessage("null"), block.Input)
}

func TestRoundTrip_ToolConversation(t *testing.T) {
	req := request.New(
		message.NewText(role.User, "What's the weather?"),
		message.New(role.Assistant,
			content.NewText("Checking."),
			content.ToolUse{ID: "call_1", Name: "get_weather", Args: json.RawMessage(`{"city":"Paris"}`)},
		),
		message.New(role.Tool, content.ToolResult{
			ID:    "call_1",
			Name:  "get_weather",
			Parts: []content.Part{content.NewText("sunny, 22C")},
		}),
	)
	req.Tools = []tool.Tool{tool.NewFunctions(tool.Function{
		Name:       "get_weather",
		Parameters: json.RawMessage(`{"type":"object"}`),
	})}

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	back, err := anthropic.FromRequest(wire)
	require.NoError(t, err)

	require.Len(t, back.Messages, 3)
	assert.Equal(t, role.User, back.Messages[0].Role)
	assert.Equal(t, role.Assistant, back.Messages[1].Role)
	assert.Equal(t, role.User, back.Messages[2].Role)
	assert.NotEmpty(t, back.Tools)

	uses := back.Messages[1].ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "call_1", uses[0].ID)
	assert.JSONEq(t, `{"city":"Paris"}`, string(uses[0].Args))

	results := back.Messages[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call_1", results[0].ID)
	assert.Equal(t, "get_weather", results[0].Name, "name recovered from the issuing tool_use block")
	assert.True(t, content.EqualParts(
		[]content.Part{content.NewText("sunny, 22C")},
		results[0].Parts,
	))
}

func TestRoundTrip_FlattenedToolResultDecodes(t *testing.T) {
	original := content.ToolResult{
		ID:   "call_1",
		Name: "subagent",
		Parts: []content.Part{
			content.NewText("summary"),
			content.ToolUse{ID: "inner", Name: "search", Args: json.RawMessage(`{"q":"x"}`)},
		},
		Ext: content.Ext{}.SetString("subagent", "run_id", "r-17"),
	}
	req := request.New(message.New(role.Tool, original))

	wire, _, err := anthropic.Convert(req, "claude-test", convert.Strict)
	require.NoError(t, err)

	back, err := anthropic.FromRequest(wire)
	require.NoError(t, err)

	results := back.Messages[0].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "subagent", results[0].Name)
	assert.True(t, content.EqualParts(original.Parts, results[0].Parts))

	runID, ok := results[0].Ext.GetString("subagent", "run_id")
	require.True(t, ok)
	assert.Equal(t, "r-17", runID)
}

func TestFromRequest_ThinkingBlockTagged(t *testing.T) {
	wire := anthropic.ChatRequest{
		Model:     "claude-test",
		MaxTokens: 1024,
		Messages: []anthropic.Message{{
			Role: "assistant",
			Content: []anthropic.Content{{
				Type:      "thinking",
				Thinking:  "Let me reason about this.",
				Signature: "sig-abc",
			}},
		}},
	}

	back, err := anthropic.FromRequest(wire)
	require.NoError(t, err)

	require.Len(t, back.Messages, 1)
	require.Len(t, back.Messages[0].Parts, 1)

	text, ok := back.Messages[0].Parts[0].(content.Text)
	require.True(t, ok)
	assert.Equal(t, "Let me reason about this.", text.Text)

	tagged, ok := text.Ext.GetBool("anthropic", "thinking")
	require.True(t, ok)
	assert.True(t, tagged)
}

func TestFromResponse_TextAndToolUse(t *testing.T) {
	resp := anthropic.ChatResponse{
		Model: "claude-test",
		Content: []anthropic.Content{
			{Type: "text", Text: "Checking."},
			{Type: "tool_use", ID: "call_1", Name: "get_weather", Input: json.RawMessage(`{"city":"Paris"}`)},
		},
		StopReason: "tool_use",
		Usage:      anthropic.Usage{InputTokens: 15, OutputTokens: 8},
	}

	out, err := anthropic.FromResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", out.VendorName)
	assert.Equal(t, "claude-test", out.ModelName)
	assert.Equal(t, "Checking.", out.Message.TextContent())
	require.Len(t, out.Message.ToolUses(), 1)
	assert.EqualValues(t, 1, out.Usage.Requests)
	assert.EqualValues(t, 15, out.Usage.InputTokens())
	assert.EqualValues(t, 8, out.Usage.OutputTokens())
}

func TestFromResponse_UnknownBlockBecomesOpaque(t *testing.T) {
	resp := anthropic.ChatResponse{
		Model: "claude-test",
		Content: []anthropic.Content{
			{Type: "server_tool_use", ID: "srv_1", Name: "web_search"},
		},
	}

	out, err := anthropic.FromResponse(resp)
	require.NoError(t, err)

	require.Len(t, out.Message.Parts, 1)
	opaque, ok := out.Message.Parts[0].(content.Opaque)
	require.True(t, ok)
	assert.Equal(t, "anthropic", opaque.Provider)
	assert.Equal(t, "server_tool_use", opaque.Kind)
	assert.Contains(t, string(opaque.Payload), "web_search")
}
