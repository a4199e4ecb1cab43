package mistral

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/capability"
	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/providers/provider"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/usage"
)

// Convert maps req onto the Mistral chat completions wire format. The
// returned plan records every transformation and problem. Under
// convert.Strict any recorded error aborts the conversion; under
// convert.ShadowAllowed the wire request is built best-effort and the
// problems stay on the plan.
//
// Tool messages cannot nest inside other turns here, so a user message
// carrying tool results expands into several wire messages: accumulated
// content flushes as a user turn before each tool result, and each tool
// result becomes its own tool turn.
func Convert(req request.ModelRequest, model string, policy convert.Policy) (ChatRequest, *convert.Plan, error) {
	plan := convert.NewPlan(provider.Mistral, policy)
	caps := capability.Mistral()
	out := ChatRequest{Model: model}

	if req.System != nil {
		out.Messages = append(out.Messages, Message{
			Role:    "system",
			Content: TextContent(systemText(plan, *req.System)),
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case role.System:
			out.Messages = append(out.Messages, Message{
				Role:    "system",
				Content: TextContent(systemText(plan, m)),
			})
		case role.Assistant:
			appendAssistantMessage(plan, &out.Messages, m)
		default:
			appendUserMessage(plan, &out.Messages, m, caps)
		}
	}

	out.Tools = convertTools(plan, req.Tools)

	if policy == convert.Strict && plan.HasErrors() {
		return ChatRequest{}, plan, plan.Err()
	}

	return out, plan, nil
}

// ToRequest converts req under the Strict policy, for callers that do not
// need the plan.
func ToRequest(req request.ModelRequest, model string) (ChatRequest, error) {
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
	return strings.Join(segments, "\n")
}

// appendUserMessage translates one user-side canonical message, possibly
// into several wire messages. Text, blobs and restored opaque parts
// accumulate into user turns; each tool result flushes what accumulated and
// then takes its own tool turn. A turn that produced nothing still occupies
// one slot as an empty user message.
func appendUserMessage(plan *convert.Plan, msgs *[]Message, m message.Message, caps capability.Capabilities) {
	start := len(*msgs)
	var parts []ContentPart

	flush := func() {
		if len(parts) == 0 {
			return
		}
		*msgs = append(*msgs, Message{Role: "user", Content: PartsContent(parts...)})
		parts = nil
	}

	for i, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			parts = append(parts, ContentPart{Type: "text", Text: v.Text})

		case content.Blob:
			part, ok := blobPart(plan, i, v, caps)
			if !ok {
				continue
			}
			parts = append(parts, part)

		case content.ToolUse:
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: i,
				PartType:  v.PartKind(),
				Provider:  plan.Provider,
				Reason:    "tool calls should not appear in user messages",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "tool calls should not appear in user messages"})

		case content.ToolResult:
			envelope, err := toolcodec.Encode(v.Name, v.Parts, v.Ext)
			if err != nil {
				plan.AddError(&convert.MessageConversionError{Detail: "encode tool result content", Err: err})
				plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "tool result content could not be encoded"})
				continue
			}
			flush()
			*msgs = append(*msgs, Message{
				Role:       "tool",
				Content:    TextContent(envelope),
				Name:       v.Name,
				ToolCallID: v.ID,
			})

		case content.Opaque:
			part, ok := opaquePart(plan, i, v)
			if !ok {
				continue
			}
			parts = append(parts, part)

		default:
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: i,
				PartType:  p.PartKind(),
				Provider:  plan.Provider,
				Reason:    "user messages carry text, media references and tool results only",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "no mistral representation"})
		}
	}

	flush()

	if len(*msgs) == start {
		*msgs = append(*msgs, Message{Role: "user", Content: PartsContent()})
	}
}

// appendAssistantMessage translates one assistant message. Text parts
// concatenate without a separator into the single string the wire expects,
// and tool calls record their position in the index field.
func appendAssistantMessage(plan *convert.Plan, msgs *[]Message, m message.Message) {
	var (
		text      strings.Builder
		toolCalls []ToolCall
	)

	for i, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			text.WriteString(v.Text)

		case content.ToolUse:
			toolCalls = append(toolCalls, ToolCall{
				ID:       v.ID,
				Function: FunctionCall{Name: v.Name, Arguments: argsString(v.Args)},
				Index:    lo.ToPtr(len(toolCalls)),
			})

		default:
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: i,
				PartType:  p.PartKind(),
				Provider:  plan.Provider,
				Reason:    "assistant messages carry text and tool calls only",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "assistant messages carry text and tool calls only"})
		}
	}

	out := Message{Role: "assistant", Content: TextContent(text.String())}
	if len(toolCalls) > 0 {
		out.ToolCalls = toolCalls
	}
	*msgs = append(*msgs, out)
}

// blobPart maps a blob onto the wire part for its modality. Mistral reads
// media by URI only, so inline base64 payloads are rejected.
func blobPart(plan *convert.Plan, idx int, b content.Blob, caps capability.Capabilities) (ContentPart, bool) {
	ref, ok := b.Ref.(content.URIData)
	if !ok {
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  b.PartKind(),
			Provider:  plan.Provider,
			Reason:    "inline base64 blobs are not accepted",
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "inline base64 blobs are not accepted"})
		return ContentPart{}, false
	}

	if !caps.SupportsMIME(b.MIMEType) {
		plan.AddError(&convert.UnsupportedMIMETypeError{MIMEType: b.MIMEType, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "unsupported MIME type"})
		return ContentPart{}, false
	}

	if strings.HasPrefix(b.MIMEType, "audio/") {
		return ContentPart{Type: "input_audio", InputAudio: ref.URI}, true
	}
	return ContentPart{Type: "image_url", ImageURL: ref.URI}, true
}

// opaquePart restores a previously captured wire part. Opaque content from
// another provider has no representation here and is rejected.
func opaquePart(plan *convert.Plan, idx int, v content.Opaque) (ContentPart, bool) {
	if v.Provider != provider.Mistral {
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  v.PartKind(),
			Provider:  plan.Provider,
			Reason:    fmt.Sprintf("opaque content belongs to provider %q, kind %q", v.Provider, v.Kind),
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "foreign opaque content"})
		return ContentPart{}, false
	}

	var part ContentPart
	if err := json.Unmarshal(v.Payload, &part); err != nil {
		plan.AddError(&convert.MessageConversionError{Detail: "decode opaque payload", Err: err})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "opaque payload could not be decoded"})
		return ContentPart{}, false
	}
	return part, true
}

// argsString renders tool call arguments the way the API expects them: a
// JSON document serialized into a string field.
func argsString(args json.RawMessage) string {
	if len(args) == 0 {
		return "null"
	}
	return string(args)
}

// convertTools maps tool declarations. A function whose schema is the empty
// object gets its parameters field dropped entirely; Mistral rejects a
// literal {} schema.
func convertTools(plan *convert.Plan, tools []tool.Tool) []Tool {
	var out []Tool
	for _, t := range tools {
		if t.IsGemini() {
			plan.AddWarning("gemini tool declarations have no mistral equivalent")
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: "gemini_tool", Reason: "no mistral equivalent"})
			continue
		}
		for _, fn := range t.Functions {
			out = append(out, Tool{
				Type:     "function",
				Function: ToolFunction{Name: fn.Name, Description: fn.Description, Parameters: toolParameters(fn.Parameters)},
			})
		}
	}
	return out
}

// toolParameters returns the schema, or nil when it is empty or the empty
// object.
func toolParameters(params json.RawMessage) json.RawMessage {
	if len(params) == 0 {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(params, &probe); err == nil && len(probe) == 0 {
		return nil
	}
	return params
}

// FromRequest reconstructs a canonical request from a Mistral request body.
// Tool messages are correlated back to the calls that produced them; a tool
// message with no tool_call_id is an error. When several system messages
// appear, the last one wins. The expansion Convert performs is not undone:
// each wire message comes back as its own canonical message.
func FromRequest(wire ChatRequest) (request.ModelRequest, error) {
	var out request.ModelRequest
	toolCallNames := make(map[string]string)

	for _, wm := range wire.Messages {
		switch wm.Role {
		case "system":
			parts, err := canonicalParts(wm.Content)
			if err != nil {
				return request.ModelRequest{}, err
			}
			sys := message.New(role.System, parts...)
			out.System = &sys

		case "user":
			parts, err := canonicalParts(wm.Content)
			if err != nil {
				return request.ModelRequest{}, err
			}
			out.Messages = append(out.Messages, message.New(role.User, parts...))

		case "assistant":
			parts, err := canonicalParts(wm.Content)
			if err != nil {
				return request.ModelRequest{}, err
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
			tr, err := toolResultFromMessage(wm, toolCallNames)
			if err != nil {
				return request.ModelRequest{}, err
			}
			out.Messages = append(out.Messages, message.New(role.Tool, tr))

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

// canonicalParts converts a wire content field back to canonical parts.
// Empty content yields no parts. The wire carries no MIME types, so blobs
// referenced by plain URL come back with an unknown MIME type.
func canonicalParts(c MessageContent) ([]content.Part, error) {
	if c.Parts == nil {
		if c.Text == nil || *c.Text == "" {
			return nil, nil
		}
		return []content.Part{content.NewText(*c.Text)}, nil
	}

	var parts []content.Part
	for _, p := range c.Parts {
		switch p.Type {
		case "text":
			parts = append(parts, content.NewText(p.Text))
		case "image_url":
			parts = append(parts, blobFromURL(p.ImageURL))
		case "input_audio":
			parts = append(parts, blobFromURL(p.InputAudio))
		default:
			return nil, convert.MessageConversionf("unknown content part type %q", p.Type)
		}
	}
	return parts, nil
}

// blobFromURL turns a media reference back into a blob: data URLs decode to
// inline base64, anything else stays a URI reference with an unknown MIME
// type.
func blobFromURL(u string) content.Blob {
	if rest, ok := strings.CutPrefix(u, "data:"); ok {
		if mimeType, data, found := strings.Cut(rest, ";base64,"); found {
			return content.NewBlobBase64(data, mimeType)
		}
	}
	return content.NewBlobURI(u, "")
}

// toolResultFromMessage rebuilds a tool result from a tool-role wire
// message. Envelope-encoded content decodes losslessly; envelope-shaped
// content that fails to decode is an error; anything else is wrapped as
// plain text. The issuing call's name wins over the wire name.
func toolResultFromMessage(wm Message, toolCallNames map[string]string) (content.ToolResult, error) {
	if wm.ToolCallID == "" {
		return content.ToolResult{}, convert.MessageConversionf("tool message missing tool_call_id")
	}
	if wm.Content.Parts != nil {
		return content.ToolResult{}, convert.MessageConversionf("tool message content must be a string")
	}

	raw := lo.FromPtr(wm.Content.Text)
	name := wm.Name
	var (
		parts []content.Part
		ext   content.Ext
	)

	if toolcodec.HasEnvelope(raw) {
		n, p, e, err := toolcodec.Decode(raw)
		if err != nil {
			return content.ToolResult{}, &convert.MessageConversionError{Detail: "decode tool result content", Err: err}
		}
		if n != "" {
			name = n
		}
		parts, ext = p, e
	} else if raw != "" {
		parts = []content.Part{content.NewText(raw)}
	}

	if lookup, ok := toolCallNames[wm.ToolCallID]; ok {
		name = lookup
	}
	if name == "" {
		name = "unknown"
	}

	return content.ToolResult{ID: wm.ToolCallID, Name: name, Parts: parts, Ext: ext}, nil
}

// FromResponse converts a Mistral response into a canonical model response.
func FromResponse(resp ChatResponse) (request.ModelResponse, error) {
	if len(resp.Choices) == 0 {
		return request.ModelResponse{}, errors.New("no choices in response")
	}

	choice := resp.Choices[0]
	parts := responseParts(choice.Message.Content)
	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, responseToolCall(tc))
	}

	u := usage.Usage{Requests: 1}
	if resp.Usage != nil {
		u.AddInput(usage.Text, uint64(resp.Usage.PromptTokens))
		u.AddOutput(usage.Text, uint64(resp.Usage.CompletionTokens))
	}

	return request.ModelResponse{
		Message:    message.New(role.Assistant, parts...),
		ModelName:  resp.Model,
		VendorName: provider.Mistral,
		Usage:      u,
	}, nil
}

// responseParts extracts the text of a response content field. Responses
// carry text only; any other part type in array form is skipped.
func responseParts(c MessageContent) []content.Part {
	if c.Parts == nil {
		if c.Text == nil || *c.Text == "" {
			return nil
		}
		return []content.Part{content.NewText(*c.Text)}
	}

	var parts []content.Part
	for _, p := range c.Parts {
		if p.Type == "text" {
			parts = append(parts, content.NewText(p.Text))
		}
	}
	return parts
}

// responseToolCall restores a tool call from a response. Arguments that fail
// to parse as JSON fall back to null instead of failing the whole response.
func responseToolCall(tc ToolCall) content.ToolUse {
	args := json.RawMessage(tc.Function.Arguments)
	var probe any
	if len(args) == 0 || json.Unmarshal(args, &probe) != nil {
		args = json.RawMessage("null")
	}
	return content.ToolUse{ID: tc.ID, Name: tc.Function.Name, Args: args}
}

// parseToolCall validates a wire tool call from a request body and restores
// the canonical tool use. Requests are built, not received, so malformed
// arguments are an error here rather than a fallback.
func parseToolCall(tc ToolCall) (content.ToolUse, error) {
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
