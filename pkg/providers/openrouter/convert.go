package openrouter

import (
	"crypto/rand"
	"encoding/hex"
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
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/providers/provider"
	"github.com/germanamz/lingua/pkg/toolcodec"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/usage"
)

// extNS is the ext namespace for OpenRouter-specific metadata.
const extNS = "openrouter"

// encryptedReasoning stands in for reasoning a vendor returned only in
// encrypted form.
const encryptedReasoning = "[Encrypted reasoning data]"

// Convert maps req onto the OpenRouter chat completions dialect. The
// returned plan records every transformation and problem. Under
// convert.Strict any recorded error aborts the conversion; under
// convert.ShadowAllowed the wire request is built best-effort and the
// problems stay on the plan.
//
// Each text part becomes its own content part so part boundaries survive a
// round trip. Models routed to Google read string content only, so for those
// an all-text message folds into one newline-joined string instead.
func Convert(req request.ModelRequest, model string, policy convert.Policy) (ChatRequest, *convert.Plan, error) {
	plan := convert.NewPlan(provider.OpenRouter, policy)
	caps := capability.OpenRouter()
	out := ChatRequest{Model: model}
	stringContent := isGoogleModel(model)

	if req.System != nil {
		out.Messages = append(out.Messages, Message{
			Role:    "system",
			Content: TextContent(systemText(plan, *req.System)),
		})
	}

	for _, m := range req.Messages {
		appendMessage(plan, &out.Messages, m, caps, stringContent)
	}

	out.Tools = convertTools(plan, req.Tools)

	if carriesReasoning(req) {
		out.IncludeReasoning = lo.ToPtr(true)
	}

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

// isGoogleModel reports whether OpenRouter will route the model to Google,
// which takes string content only.
func isGoogleModel(model string) bool {
	return strings.HasPrefix(model, "google/") || strings.Contains(model, "gemini")
}

// carriesReasoning reports whether any message relays reasoning text from an
// earlier turn, which turns on reasoning passthrough for the routed model.
func carriesReasoning(req request.ModelRequest) bool {
	for _, m := range req.Messages {
		for _, p := range m.Parts {
			t, ok := p.(content.Text)
			if !ok {
				continue
			}
			if v, ok := t.Ext.GetBool(extNS, "reasoning"); ok && v {
				return true
			}
			if v, ok := t.Ext.GetBool("anthropic", "thinking"); ok && v {
				return true
			}
		}
	}
	return false
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

// appendMessage translates one canonical message. Text and blobs fold into a
// base wire message; each tool result becomes its own tool-role wire message
// appended after the base, correlated by tool_call_id.
func appendMessage(plan *convert.Plan, msgs *[]Message, m message.Message, caps capability.Capabilities, stringContent bool) {
	var (
		parts     []ContentPart
		toolCalls []ToolCall
		toolMsgs  []Message
	)

	for i, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			parts = append(parts, ContentPart{Type: "text", Text: v.Text})

		case content.Blob:
			part, ok := imagePart(plan, i, v, caps)
			if !ok {
				continue
			}
			parts = append(parts, part)

		case content.ToolUse:
			toolCalls = append(toolCalls, ToolCall{
				ID:       v.ID,
				Type:     "function",
				Function: FunctionCall{Name: v.Name, Arguments: argsString(v.Args)},
			})

		case content.ToolResult:
			envelope, err := toolcodec.Encode(v.Name, v.Parts, v.Ext)
			if err != nil {
				plan.AddError(&convert.MessageConversionError{Detail: "encode tool result content", Err: err})
				plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "tool result content could not be encoded"})
				continue
			}
			toolMsgs = append(toolMsgs, Message{
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
				Reason:    "the chat completions dialect carries text, images and tool exchanges only",
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "no chat completions representation"})
		}
	}

	base := Message{Role: roleString(m.Role)}
	hasBase := false
	if len(parts) > 0 {
		base.Content = wireContent(plan, parts, stringContent)
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

// wireContent picks the content encoding. An all-text part list folds into
// one newline-joined string for Google-routed models; everything else stays
// an array of typed parts.
func wireContent(plan *convert.Plan, parts []ContentPart, stringContent bool) MessageContent {
	if !stringContent {
		return PartsContent(parts...)
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type != "text" {
			return PartsContent(parts...)
		}
		texts = append(texts, p.Text)
	}

	if len(texts) > 1 {
		plan.AddWarning("google-routed models take string content; text parts were folded into one")
		plan.AddAction(convert.Action{
			Kind:         convert.Shadow,
			OriginalType: "text",
			SimplifiedTo: "joined text",
			Reason:       "google-routed models take string content",
		})
	}

	return TextContent(strings.Join(texts, "\n"))
}

// imagePart inlines a blob as a data URL image part. OpenRouter does not
// fetch remote content, so URI blobs are rejected.
func imagePart(plan *convert.Plan, idx int, b content.Blob, caps capability.Capabilities) (ContentPart, bool) {
	data, ok := b.Ref.(content.Base64Data)
	if !ok {
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  b.PartKind(),
			Provider:  plan.Provider,
			Reason:    "blobs must be inline base64 data URLs",
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "blobs must be inline base64 data URLs"})
		return ContentPart{}, false
	}

	if !caps.SupportsMIME(b.MIMEType) {
		plan.AddError(&convert.UnsupportedMIMETypeError{MIMEType: b.MIMEType, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "unsupported MIME type"})
		return ContentPart{}, false
	}
	if !caps.CanAcceptBase64(data.Size()) {
		plan.AddError(&convert.Base64TooLargeError{Size: data.Size(), MaxSize: caps.MaxBase64Size, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "inline payload too large"})
		return ContentPart{}, false
	}

	return ContentPart{
		Type:     "image_url",
		ImageURL: &ImageURL{URL: dataURL(b.MIMEType, data.Data)},
	}, true
}

func dataURL(mimeType, data string) string {
	return "data:" + mimeType + ";base64," + data
}

// opaquePart restores a previously captured wire part. Opaque content from
// another provider has no representation here and is rejected.
func opaquePart(plan *convert.Plan, idx int, v content.Opaque) (ContentPart, bool) {
	if v.Provider != provider.OpenRouter {
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

// FromRequest reconstructs a canonical request from an OpenRouter request
// body. Tool messages are correlated back to the calls that produced them; a
// tool message with no tool_call_id is an error. When several system
// messages appear, the last one wins.
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
// Empty content yields no parts.
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
			if p.ImageURL == nil {
				return nil, convert.MessageConversionf("image_url content part without a url")
			}
			parts = append(parts, blobFromURL(*p.ImageURL))
		default:
			return nil, convert.MessageConversionf("unknown content part type %q", p.Type)
		}
	}
	return parts, nil
}

// blobFromURL turns an image_url value back into a blob: data URLs decode to
// inline base64, anything else stays a URI reference with an unknown MIME
// type.
func blobFromURL(u ImageURL) content.Blob {
	if rest, ok := strings.CutPrefix(u.URL, "data:"); ok {
		if mimeType, data, found := strings.Cut(rest, ";base64,"); found {
			return content.NewBlobBase64(data, mimeType)
		}
	}
	return content.NewBlobURI(u.URL, "")
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

// FromResponse converts an OpenRouter response into a canonical model
// response. Reasoning text, wherever the routed vendor put it, becomes a
// leading text part tagged with the openrouter.reasoning ext flag.
func FromResponse(resp ChatResponse) (request.ModelResponse, error) {
	if len(resp.Choices) == 0 {
		return request.ModelResponse{}, errors.New("empty choices in response")
	}

	choice := resp.Choices[0]
	var parts []content.Part
	if txt, ok := reasoningText(choice.Message); ok {
		parts = append(parts, content.Text{
			Text: txt,
			Ext:  content.Ext{}.SetBool(extNS, "reasoning", true),
		})
	}
	if choice.Message.Content != "" {
		parts = append(parts, content.NewText(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		use, err := parseToolCall(tc)
		if err != nil {
			return request.ModelResponse{}, err
		}
		parts = append(parts, use)
	}

	return request.ModelResponse{
		Message:    message.New(role.Assistant, parts...),
		ModelName:  resp.Model,
		VendorName: provider.OpenRouter,
		Usage:      usageFromResponse(resp),
	}, nil
}

// reasoningText picks the reasoning transcript from whichever field the
// routed vendor filled: the reasoning string first, then the first
// reasoning_details entry. Encrypted-only reasoning yields a placeholder so
// its presence is visible.
func reasoningText(m ResponseMessage) (string, bool) {
	if m.Reasoning != "" {
		return m.Reasoning, true
	}
	if len(m.ReasoningDetails) == 0 {
		return "", false
	}

	d := m.ReasoningDetails[0]
	switch {
	case d.Summary != "":
		return d.Summary, true
	case d.Text != "":
		return d.Text, true
	case d.Data != "":
		return encryptedReasoning, true
	}
	return "", false
}

func usageFromResponse(resp ChatResponse) usage.Usage {
	u := tokenUsage(resp.Usage)
	u.Requests = 1
	if resp.Provider != "" {
		data, _ := json.Marshal(resp.Provider)
		u.Details = map[string]json.RawMessage{"provider": data}
	}
	return u
}

// tokenUsage maps wire token counts onto modality buckets. The gateway
// reports text tokens only; cached prompt tokens and reasoning tokens
// surface in their dedicated fields.
func tokenUsage(w *Usage) usage.Usage {
	var u usage.Usage
	if w == nil {
		return u
	}

	u.AddInput(usage.Text, uint64(w.PromptTokens))
	u.AddOutput(usage.Text, uint64(w.CompletionTokens))
	if d := w.PromptTokensDetails; d != nil && d.CachedTokens > 0 {
		u.CacheReadTokens = lo.ToPtr(uint64(d.CachedTokens))
		u.AddCache(usage.Text, uint64(d.CachedTokens))
	}
	if d := w.CompletionTokensDetails; d != nil && d.ReasoningTokens > 0 {
		u.ThoughtsTokens = lo.ToPtr(uint64(d.ReasoningTokens))
	}
	return u
}

// parseToolCall validates a wire tool call and restores the canonical tool
// use. Vendors behind the gateway sometimes omit the call id or the
// arguments; a missing id is synthesized and missing arguments default to an
// empty object, but a missing name is unrecoverable.
func parseToolCall(tc ToolCall) (content.ToolUse, error) {
	if tc.Function.Name == "" {
		return content.ToolUse{}, convert.MessageConversionf("tool call without a function name")
	}

	args := tc.Function.Arguments
	if args == "" {
		args = "{}"
	}
	var probe any
	if err := json.Unmarshal([]byte(args), &probe); err != nil {
		return content.ToolUse{}, &convert.MessageConversionError{Detail: "parse tool call arguments", Err: err}
	}

	id := tc.ID
	if id == "" {
		id = generateCallID(tc.Function.Name)
	}

	return content.ToolUse{ID: id, Name: tc.Function.Name, Args: json.RawMessage(args)}, nil
}

// generateCallID synthesizes a correlation id for tool calls that arrive
// without one. Ids must never collide across unrelated calls, so the suffix
// is random.
func generateCallID(name string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("call_%s_%s", name, hex.EncodeToString(b))
}
