package gemini_test

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
	"github.com/germanamz/lingua/pkg/providers/gemini"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/usage"
)

func TestConvert_SystemDemotedToLeadingUserTurn(t *testing.T) {
	sys := message.NewText(role.System, "You are helpful.")
	req := request.New(message.NewText(role.User, "Hi"))
	req.System = &sys

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	assert.True(t, plan.IsLossless(), "demotion keeps the content, nothing is dropped")
	assert.NotEmpty(t, plan.Warnings())

	var shadowed bool
	for _, a := range plan.Actions() {
		if a.Kind == convert.Shadow && a.OriginalType == "system" {
			shadowed = true
		}
	}
	assert.True(t, shadowed, "the demotion must be recorded on the plan")

	// The demoted turn and the first user message share a role and merge.
	require.Len(t, wire.Contents, 1)
	assert.Equal(t, "user", wire.Contents[0].Role)
	require.Len(t, wire.Contents[0].Parts, 2)
	assert.Equal(t, "You are helpful.", wire.Contents[0].Parts[0].Text)
	assert.Equal(t, "Hi", wire.Contents[0].Parts[1].Text)
	assert.Nil(t, wire.SystemInstruction)
}

func TestConvert_RoleAlternation(t *testing.T) {
	req := request.New(
		message.NewText(role.User, "Hi"),
		message.NewText(role.Assistant, "Hello!"),
		message.NewText(role.User, "How are you?"),
	)

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	require.Len(t, wire.Contents, 3)
	assert.Equal(t, "user", wire.Contents[0].Role)
	assert.Equal(t, "model", wire.Contents[1].Role)
	assert.Equal(t, "user", wire.Contents[2].Role)
}

func TestConvert_ConsecutiveSameRoleTurnsMerge(t *testing.T) {
	req := request.New(
		message.NewText(role.User, "first"),
		message.NewText(role.User, "second"),
	)

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	require.Len(t, wire.Contents, 1)
	require.Len(t, wire.Contents[0].Parts, 2)
	assert.Equal(t, "second", wire.Contents[0].Parts[1].Text)
}

func TestConvert_InlineImage(t *testing.T) {
	req := request.New(message.New(role.User,
		content.NewText("describe this"),
		content.NewBlobBase64("aGVsbG8=", "image/png"),
	))

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	require.Len(t, wire.Contents, 1)
	require.Len(t, wire.Contents[0].Parts, 2)

	img := wire.Contents[0].Parts[1].InlineData
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "aGVsbG8=", img.Data)
}

func TestConvert_URIBlobBecomesFileData(t *testing.T) {
	clip := content.NewBlobURI("https://example.com/clip.mp4", "video/mp4")
	clip.Name = "clip"
	req := request.New(message.New(role.User, clip))

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	fd := wire.Contents[0].Parts[0].FileData
	require.NotNil(t, fd)
	assert.Equal(t, "https://example.com/clip.mp4", fd.FileURI)
	assert.Equal(t, "video/mp4", fd.MIMEType)
	assert.Equal(t, "clip", fd.DisplayName)
}

func TestConvert_UnsupportedMIMEType(t *testing.T) {
	req := request.New(message.New(role.User, content.NewBlobBase64("aGk=", "text/plain")))

	_, plan, err := gemini.Convert(req, convert.Strict)
	require.Error(t, err)
	assert.False(t, plan.IsLossless())

	var mime *convert.UnsupportedMIMETypeError
	require.ErrorAs(t, err, &mime)
	assert.Equal(t, "text/plain", mime.MIMEType)
	assert.Equal(t, "gemini", mime.Provider)
}

func TestConvert_ShadowAllowedKeepsRemainingParts(t *testing.T) {
	req := request.New(message.New(role.User,
		content.NewText("look at this"),
		content.NewBlobBase64("aGk=", "text/plain"),
	))

	wire, plan, err := gemini.Convert(req, convert.ShadowAllowed)
	require.NoError(t, err)
	assert.True(t, plan.HasErrors())
	assert.False(t, plan.IsLossless())

	require.Len(t, wire.Contents, 1)
	require.Len(t, wire.Contents[0].Parts, 1)
	assert.Equal(t, "look at this", wire.Contents[0].Parts[0].Text)
}

func TestConvert_ToolUse(t *testing.T) {
	req := request.New(message.New(role.Assistant, content.ToolUse{
		ID:   "call_1",
		Name: "get_weather",
		Args: json.RawMessage(`{"city":"Paris"}`),
	}))

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	require.Len(t, wire.Contents, 1)
	assert.Equal(t, "model", wire.Contents[0].Role)

	fc := wire.Contents[0].Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "call_1", fc.ID)
	assert.Equal(t, "get_weather", fc.Name)
	assert.JSONEq(t, `{"city":"Paris"}`, string(fc.Args))
}

func TestConvert_MachineJSONPassesThroughRaw(t *testing.T) {
	raw := `{"temperature":22.5,"conditions":"Partly cloudy"}`
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:    "call_1",
		Name:  "get_weather",
		Parts: []content.Part{content.NewText(raw)},
	}))

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())
	assert.Empty(t, plan.Actions(), "a structured result maps natively, nothing to record")

	fr := wire.Contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "call_1", fr.ID)
	assert.Equal(t, "get_weather", fr.Name)
	assert.Equal(t, raw, string(fr.Response), "machine JSON must survive byte for byte")
}

func TestConvert_PlainTextResultWrapped(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:    "call_1",
		Name:  "get_weather",
		Parts: []content.Part{content.NewText("sunny and 22C")},
	}))

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	fr := wire.Contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, `{"result":"sunny and 22C"}`, string(fr.Response))
}

func TestConvert_JSONArrayResultWrapped(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:    "call_1",
		Name:  "list_items",
		Parts: []content.Part{content.NewText(`[1,2,3]`)},
	}))

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	fr := wire.Contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, `{"result":[1,2,3]}`, string(fr.Response))
}

func TestConvert_MultiPartResultUsesEnvelope(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:   "call_1",
		Name: "render_chart",
		Parts: []content.Part{
			content.NewText("chart attached"),
			content.NewBlobBase64("aW1n", "image/png"),
		},
	}))

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())
	assert.Empty(t, plan.Actions(), "the envelope is a structured object, not a flattening")

	fr := wire.Contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	require.True(t, toolcodec.IsEncoded(string(fr.Response)))

	name, parts, _, err := toolcodec.Decode(string(fr.Response))
	require.NoError(t, err)
	assert.Equal(t, "render_chart", name)
	require.Len(t, parts, 2)
}

func TestConvert_ToolResultNameFallsBackToIssuingCall(t *testing.T) {
	req := request.New(
		message.New(role.Assistant, content.ToolUse{
			ID:   "call_7",
			Name: "lookup",
			Args: json.RawMessage(`{}`),
		}),
		message.New(role.Tool, content.ToolResult{
			ID:    "call_7",
			Parts: []content.Part{content.NewText("found it")},
		}),
	)

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	fr := wire.Contents[1].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "lookup", fr.Name)
}

func TestConvert_ToolResultNameUnresolvable(t *testing.T) {
	req := request.New(message.New(role.Tool, content.ToolResult{
		ID:    "call_9",
		Parts: []content.Part{content.NewText("orphaned")},
	}))

	_, plan, err := gemini.Convert(req, convert.Strict)
	require.Error(t, err)
	assert.False(t, plan.IsLossless())

	var conv *convert.MessageConversionError
	require.ErrorAs(t, err, &conv)
	assert.Contains(t, conv.Error(), "no function name")
}

func TestConvert_OpaqueForeignProviderRejected(t *testing.T) {
	req := request.New(message.New(role.Assistant, content.Opaque{
		Provider: "anthropic",
		Kind:     "thinking",
		Payload:  json.RawMessage(`{"thinking":"hmm"}`),
	}))

	_, _, err := gemini.Convert(req, convert.Strict)
	require.Error(t, err)

	var unsupported *convert.UnsupportedContentError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Reason, `"anthropic"`)
}

func TestConvert_OpaqueSameProviderDecodes(t *testing.T) {
	req := request.New(message.New(role.Assistant, content.Opaque{
		Provider: "gemini",
		Kind:     "part",
		Payload:  json.RawMessage(`{"text":"from opaque"}`),
	}))

	wire, plan, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	assert.True(t, plan.IsLossless())

	assert.Equal(t, "from opaque", wire.Contents[0].Parts[0].Text)
}

func TestConvert_ToolDeclarationsSanitized(t *testing.T) {
	schema := json.RawMessage(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"filters": {
				"type": "object",
				"additionalProperties": false,
				"properties": {"city": {"type": "string"}}
			}
		}
	}`)
	req := request.New(message.NewText(role.User, "weather?"))
	req.Tools = []tool.Tool{tool.NewFunctions(tool.Function{
		Name:        "get_weather",
		Description: "Weather lookup",
		Parameters:  schema,
	})}

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	require.Len(t, wire.Tools, 1)

	var decl map[string][]gemini.FunctionDeclaration
	require.NoError(t, json.Unmarshal(wire.Tools[0], &decl))
	require.Len(t, decl["functionDeclarations"], 1)

	fn := decl["functionDeclarations"][0]
	assert.Equal(t, "get_weather", fn.Name)
	assert.Equal(t, "Weather lookup", fn.Description)
	assert.NotContains(t, string(fn.Parameters), "$schema")
	assert.NotContains(t, string(fn.Parameters), "additionalProperties")
	assert.Contains(t, string(fn.Parameters), `"city"`)
}

func TestConvert_GeminiToolPassesThroughRaw(t *testing.T) {
	req := request.New(message.NewText(role.User, "search the web"))
	req.Tools = []tool.Tool{tool.NewGeminiTool(json.RawMessage(`{"googleSearch":{}}`))}

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)
	require.Len(t, wire.Tools, 1)
	assert.JSONEq(t, `{"googleSearch":{}}`, string(wire.Tools[0]))
}

func TestRoundTrip_ToolConversation(t *testing.T) {
	resultJSON := `{"temp":"22C"}`
	req := request.New(
		message.NewText(role.User, "weather in Paris?"),
		message.New(role.Assistant,
			content.NewText("Checking."),
			content.ToolUse{ID: "call_1", Name: "get_weather", Args: json.RawMessage(`{"city":"Paris"}`)},
		),
		message.New(role.Tool, content.ToolResult{
			ID:    "call_1",
			Name:  "get_weather",
			Parts: []content.Part{content.NewText(resultJSON)},
		}),
	)

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)
	require.Len(t, back.Messages, 3)

	assert.Equal(t, role.User, back.Messages[0].Role)
	assert.Equal(t, role.Assistant, back.Messages[1].Role)

	uses := back.Messages[1].ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "call_1", uses[0].ID)
	assert.JSONEq(t, `{"city":"Paris"}`, string(uses[0].Args))

	results := back.Messages[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call_1", results[0].ID)
	assert.Equal(t, "get_weather", results[0].Name)
	require.Len(t, results[0].Parts, 1)
	assert.Equal(t, resultJSON, results[0].Parts[0].(content.Text).Text)
}

func TestRoundTrip_MultiPartResultRestoresExt(t *testing.T) {
	original := content.ToolResult{
		ID:   "call_2",
		Name: "run_agent",
		Parts: []content.Part{
			content.NewText("step one"),
			content.NewText("step two"),
		},
		Ext: content.Ext{}.SetString("subagent", "run_id", "r-17"),
	}
	req := request.New(message.New(role.Tool, original))

	wire, _, err := gemini.Convert(req, convert.Strict)
	require.NoError(t, err)

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)

	results := back.Messages[0].ToolResults()
	require.Len(t, results, 1)
	assert.True(t, content.EqualParts(original.Parts, results[0].Parts))

	runID, ok := results[0].Ext.GetString("subagent", "run_id")
	require.True(t, ok)
	assert.Equal(t, "r-17", runID)
}

func TestFromRequest_SystemInstructionLifts(t *testing.T) {
	wire := gemini.GenerateRequest{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: "Stay terse."}}},
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: "Hi"}}},
			{Role: "model", Parts: []gemini.Part{{Text: "Hello."}}},
		},
	}

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)

	require.NotNil(t, back.System)
	assert.Equal(t, "Stay terse.", back.System.TextContent())
	require.Len(t, back.Messages, 2)
	assert.Equal(t, role.Assistant, back.Messages[1].Role)
}

func TestFromRequest_SynthesizesCallID(t *testing.T) {
	wire := gemini.GenerateRequest{Contents: []gemini.Content{{
		Role: "model",
		Parts: []gemini.Part{{FunctionCall: &gemini.FunctionCall{
			Name: "ping",
			Args: json.RawMessage(`{}`),
		}}},
	}}}

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)

	uses := back.Messages[0].ToolUses()
	require.Len(t, uses, 1)
	assert.True(t, strings.HasPrefix(uses[0].ID, "call_ping_"))
	assert.Len(t, uses[0].ID, len("call_ping_")+16)
}

func TestFromRequest_CodeExecutionParts(t *testing.T) {
	wire := gemini.GenerateRequest{Contents: []gemini.Content{{
		Role: "model",
		Parts: []gemini.Part{
			{ExecutableCode: &gemini.ExecutableCode{Language: "PYTHON", Code: "print(1)"}},
			{CodeExecutionResult: &gemini.CodeExecutionResult{Outcome: "OUTCOME_OK", Output: "1\n"}},
		},
	}}}

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)

	uses := back.Messages[0].ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "code_interpreter", uses[0].Name)
	assert.Empty(t, uses[0].ID)
	assert.JSONEq(t, `{"language":"PYTHON","code":"print(1)"}`, string(uses[0].Args))

	results := back.Messages[0].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "code_interpreter", results[0].Name)
	require.Len(t, results[0].Parts, 1)
	assert.JSONEq(t, `{"outcome":"OUTCOME_OK","output":"1\n"}`, results[0].Parts[0].(content.Text).Text)
}

func TestFromRequest_ToolShapes(t *testing.T) {
	wire := gemini.GenerateRequest{Tools: []json.RawMessage{
		json.RawMessage(`{"functionDeclarations":[{"name":"get_weather","description":"d","parameters":{"type":"object"}}]}`),
		json.RawMessage(`{"googleSearch":{}}`),
	}}

	back, err := gemini.FromRequest(wire)
	require.NoError(t, err)
	require.Len(t, back.Tools, 2)

	require.Len(t, back.Tools[0].Functions, 1)
	assert.Equal(t, "get_weather", back.Tools[0].Functions[0].Name)

	assert.True(t, back.Tools[1].IsGemini())
	assert.JSONEq(t, `{"googleSearch":{}}`, string(back.Tools[1].GeminiTool))
}

func TestFromResponse_UsageModalityDetails(t *testing.T) {
	resp := gemini.GenerateResponse{
		Candidates: []gemini.Candidate{{
			Content:      gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "done"}}},
			FinishReason: "STOP",
		}},
		UsageMetadata: &gemini.UsageMetadata{
			PromptTokenCount: 30,
			PromptTokensDetails: []gemini.ModalityTokenCount{
				{Modality: "TEXT", TokenCount: 20},
				{Modality: "IMAGE", TokenCount: 10},
			},
			CandidatesTokenCount:    5,
			CachedContentTokenCount: 8,
			ThoughtsTokenCount:      3,
		},
		ModelVersion: "gemini-2.0-flash",
	}

	out, err := gemini.FromResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", out.ModelName)
	assert.Equal(t, "gemini", out.VendorName)
	assert.Equal(t, "done", out.Message.TextContent())

	assert.Equal(t, uint64(1), out.Usage.Requests)
	assert.Equal(t, uint64(20), out.Usage.InputTokensByModality[usage.Text])
	assert.Equal(t, uint64(10), out.Usage.InputTokensByModality[usage.Image])
	assert.Equal(t, uint64(5), out.Usage.OutputTokensByModality[usage.Text])

	require.NotNil(t, out.Usage.CacheReadTokens)
	assert.Equal(t, uint64(8), *out.Usage.CacheReadTokens)
	require.NotNil(t, out.Usage.ThoughtsTokens)
	assert.Equal(t, uint64(3), *out.Usage.ThoughtsTokens)
}

func TestFromResponse_EmptyCandidates(t *testing.T) {
	_, err := gemini.FromResponse(gemini.GenerateResponse{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty candidates")
}
