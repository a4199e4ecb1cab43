package openai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/providers/provider"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/usage"
)

// textJoin separates adjacent text parts folded into one wire content field.
const textJoin = " \n"

// emptyToolResult stands in for a tool message the API delivered with null
// content, so the decoder still produces a usable tool result.
const emptyToolResult = `{"` + toolcodec.EnvelopeKey + `": {"name": "unknown", "content": []}}`

// Convert maps req onto the OpenAI chat completions wire format. The
// returned plan records every transformation and problem. Under
// convert.Strict any recorded error aborts the conversion; under
// convert.ShadowAllowed the wire request is built best-effort and the
// problems stay on the plan.
func Convert(req request.ModelRequest, model string, policy convert.Policy) (openaifmt.ChatRequest, *convert.Plan, error) {
	return ConvertAs(provider.OpenAI, req, model, policy)
}

// ConvertAs is Convert for any provider that speaks the OpenAI dialect. The
// provider name appears in plan entries and error messages.
func ConvertAs(providerName string, req request.ModelRequest, model string, policy convert.Policy) (openaifmt.ChatRequest, *convert.Plan, error) {
	plan := convert.NewPlan(providerName, policy)
	out := openaifmt.ChatRequest{Model: model}

	if req.System != nil {
		out.Messages = append(out.Messages, openaifmt.Message{
			Role:    "system",
			Content: lo.ToPtr(systemText(plan, *req.System)),
		})
	}

	for _, m := range req.Messages {
		appendMessage(plan, &out.Messages, m)
	}

	out.Tools = convertTools(plan, req.Tools)

	if policy == convert.Strict && plan.HasErrors() {
		return openaifmt.ChatRequest{}, plan, plan.Err()
	}

	return out, plan, nil
}

// ToRequest converts req under the Strict policy, for callers that do not
// need the plan.
func ToRequest(req request.ModelRequest, model string) (openaifmt.ChatRequest, error) {
	wire, _, err := Convert(req, model, convert.Strict)
	return wire, err
}

// systemText folds a system message into the single string the wire format
// allows for the system role.
func systemText(plan *convert.Plan, m message.Message) string {
	var segments []string
	for i, p := range m.Parts {
		t, ok := p.(content.Text)
		if !ok {
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: i,
				PartType:  p.PartKind(),
				Provider:  plan.Provider,
				Reason:    "system messages carry text only",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "system messages carry text only"})
			continue
		}
		segments = append(segments, t.Text)
	}
	return strings.Join(segments, textJoin)
}

// appendMessage translates one canonical message. Text and tool calls fold
// into a base wire message; each tool result becomes its own tool-role wire
// message appended after the base, correlated by tool_call_id.
func appendMessage(plan *convert.Plan, msgs *[]openaifmt.Message, m message.Message) {
	var (
		segments  []string
		toolCalls []openaifmt.ToolCall
		toolMsgs  []openaifmt.Message
	)

	for i, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			segments = append(segments, v.Text)
		case content.ToolUse:
			toolCalls = append(toolCalls, openaifmt.ToolCall{
				ID:       v.ID,
				Type:     "function",
				Function: openaifmt.FunctionCall{Name: v.Name, Arguments: argsString(v.Args)},
			})
		case content.ToolResult:
			envelope, err := toolcodec.Encode(v.Name, v.Parts, v.Ext)
			if err != nil {
				plan.AddError(&convert.MessageConversionError{Detail: "encode tool result content", Err: err})
				plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "tool result content could not be encoded"})
				continue
			}
			toolMsgs = append(toolMsgs, openaifmt.Message{
				Role:       "tool",
				Content:    lo.ToPtr(envelope),
				Name:       v.Name,
				ToolCallID: v.ID,
			})
		default:
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: i,
				PartType:  p.PartKind(),
				Provider:  plan.Provider,
				Reason:    "the chat completions format carries text and tool exchanges only",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "no chat completions representation"})
		}
	}

	base := openaifmt.Message{Role: roleString(m.Role)}
	hasBase := false
	if len(segments) > 0 {
		base.Content = lo.ToPtr(strings.Join(segments, textJoin))
		hasBase = true
	}
	if len(toolCalls) > 0 {
		base.ToolCalls = toolCalls
		hasBase = true
	}

	// An assistant turn with nothing to say still occupies its slot in the
	// conversation; other empty roles are dropped.
	if hasBase || m.Role == role.Assistant {
		*msgs = append(*msgs, base)
	}
	*msgs = append(*msgs, toolMsgs...)
}

func roleString(r role.Role) string {
	switch r {
	case role.System:
		return "system"
	case role.Assistant:
		return "assistant"
	}
	return "user"
}

// argsString renders tool call arguments the way the API expects them: a
// JSON document serialized into a string field.
func argsString(args json.RawMessage) string {
	if len(args) == 0 {
		return "null"
	}
	return string(args)
}

func convertTools(plan *convert.Plan, tools []tool.Tool) []openaifmt.Tool {
	var out []openaifmt.Tool
	for _, t := range tools {
		if t.IsGemini() {
			plan.AddWarning("gemini tool declarations have no chat completions equivalent")
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: "gemini_tool", Reason: "no chat completions equivalent"})
			continue
		}
		for _, fn := range t.Functions {
			params := fn.Parameters
			if len(params) == 0 {
				params = json.RawMessage(`{}`)
			}
			out = append(out, openaifmt.Tool{
				Type:     "function",
				Function: openaifmt.Function{Name: fn.Name, Description: fn.Description, Parameters: params},
			})
		}
	}
	return out
}

// FromRequest reconstructs a canonical request from a chat completions
// request body. Tool messages are correlated back to the calls that produced
// them; a tool message with no tool_call_id is an error. When several system
// messages appear, the last one wins.
func FromRequest(wire openaifmt.ChatRequest) (request.ModelRequest, error) {
	var out request.ModelRequest
	toolCallNames := make(map[string]string)

	for _, wm := range wire.Messages {
		switch wm.Role {
		case "system":
			sys := message.New(role.System, content.NewText(lo.FromPtr(wm.Content)))
			out.System = &sys

		case "user":
			out.Messages = append(out.Messages, message.New(role.User, content.NewText(lo.FromPtr(wm.Content))))

		case "assistant":
			var parts []content.Part
			if wm.Content != nil && *wm.Content != "" {
				parts = append(parts, content.NewText(*wm.Content))
			}
			for _, tc := range wm.ToolCalls {
				use, err := parseToolCall(tc)
				if err != nil {
					return request.ModelRequest{}, err
				}
				toolCallNames[use.ID] = use.Name
				parts = append(parts, use)
			}
			out.Messages = append(out.Messages, message.New(role.Assistant, parts...))

		case "tool":
			if wm.ToolCallID == "" {
				return request.ModelRequest{}, convert.MessageConversionf("tool message missing tool_call_id")
			}
			raw := emptyToolResult
			if wm.Content != nil {
				raw = *wm.Content
			}
			name, parts, ext, err := toolcodec.Decode(raw)
			if err != nil {
				return request.ModelRequest{}, &convert.MessageConversionError{Detail: "decode tool result content", Err: err}
			}
			if lookup, ok := toolCallNames[wm.ToolCallID]; ok {
				name = lookup
			}
			out.Messages = append(out.Messages, message.New(role.Tool, content.ToolResult{
				ID:    wm.ToolCallID,
				Name:  name,
				Parts: parts,
				Ext:   ext,
			}))

		default:
			return request.ModelRequest{}, convert.MessageConversionf("unknown message role %q", wm.Role)
		}
	}

	if len(wire.Tools) > 0 {
		fns := make([]tool.Function, 0, len(wire.Tools))
		for _, t := range wire.Tools {
			params := t.Function.Parameters
			if len(params) == 0 {
				params = json.RawMessage(`{}`)
			}
			fns = append(fns, tool.Function{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  params,
			})
		}
		out.Tools = []tool.Tool{tool.NewFunctions(fns...)}
	}

	return out, nil
}

// FromResponse converts a chat completions response into a canonical model
// response attributed to OpenAI.
func FromResponse(resp openaifmt.ChatResponse) (request.ModelResponse, error) {
	return FromResponseAs(provider.OpenAI, resp)
}

// FromResponseAs is FromResponse for any provider that speaks the OpenAI
// dialect.
func FromResponseAs(providerName string, resp openaifmt.ChatResponse) (request.ModelResponse, error) {
	if len(resp.Choices) == 0 {
		return request.ModelResponse{}, errors.New("empty choices in response")
	}

	choice := resp.Choices[0]
	var parts []content.Part
	if choice.Message.Content != nil && *choice.Message.Content != "" {
		parts = append(parts, content.NewText(*choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		use, err := parseToolCall(tc)
		if err != nil {
			return request.ModelResponse{}, err
		}
		parts = append(parts, use)
	}

	u := usage.Usage{Requests: 1}
	u.AddInput(usage.Text, uint64(resp.Usage.PromptTokens))
	u.AddOutput(usage.Text, uint64(resp.Usage.CompletionTokens))

	return request.ModelResponse{
		Message:    message.New(role.Assistant, parts...),
		ModelName:  resp.Model,
		VendorName: providerName,
		Usage:      u,
	}, nil
}

func parseToolCall(tc openaifmt.ToolCall) (content.ToolUse, error) {
	var probe any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &probe); err != nil {
		return content.ToolUse{}, &convert.MessageConversionError{Detail: "parse tool call arguments", Err: err}
	}
	return content.ToolUse{
		ID:   tc.ID,
		Name: tc.Function.Name,
		Args: json.RawMessage(tc.Function.Arguments),
	}, nil
}
