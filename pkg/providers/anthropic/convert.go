package anthropic

import (
	"encoding/json"
	"fmt"

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

// extNS is the ext namespace for Anthropic-specific metadata.
const extNS = "anthropic"

// Convert maps req onto the Anthropic messages wire format. The returned
// plan records every transformation and problem. Under convert.Strict any
// recorded error aborts the conversion; under convert.ShadowAllowed the wire
// request is built best-effort and the problems stay on the plan.
func Convert(req request.ModelRequest, model string, policy convert.Policy) (ChatRequest, *convert.Plan, error) {
	plan := convert.NewPlan(provider.Anthropic, policy)
	caps := capability.Anthropic()
	out := ChatRequest{Model: model, MaxTokens: defaultMaxTokens}

	if req.System != nil {
		out.System = systemPrompt(plan, *req.System)
	}

	for _, m := range req.Messages {
		appendMessage(plan, caps, &out.Messages, m)
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

// systemPrompt folds a system message into the system field: one text part
// becomes a plain string, several become content blocks.
func systemPrompt(plan *convert.Plan, m message.Message) *SystemPrompt {
	var texts []string
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
		texts = append(texts, t.Text)
	}

	if len(texts) == 1 {
		return &SystemPrompt{Text: texts[0]}
	}

	blocks := make([]Content, 0, len(texts))
	for _, t := range texts {
		blocks = append(blocks, Content{Type: "text", Text: t})
	}
	return &SystemPrompt{Blocks: blocks}
}

// appendMessage translates one canonical message into wire blocks. Tool
// results must live in user-role turns, and consecutive turns with the same
// role merge, so blocks are appended one at a time.
func appendMessage(plan *convert.Plan, caps capability.Capabilities, msgs *[]Message, m message.Message) {
	if m.Role == role.System {
		plan.AddWarning("system message in the conversation list has no slot; use the system field")
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: "message", Reason: "system messages belong in the system field"})
		return
	}

	for i, p := range m.Parts {
		block, ok := partToBlock(plan, caps, i, p)
		if !ok {
			continue
		}

		blockRole := roleString(m.Role)
		if block.Type == "tool_result" {
			blockRole = "user"
		}

		if len(*msgs) > 0 && (*msgs)[len(*msgs)-1].Role == blockRole {
			last := &(*msgs)[len(*msgs)-1]
			last.Content = append(last.Content, block)
			continue
		}

		*msgs = append(*msgs, Message{Role: blockRole, Content: []Content{block}})
	}
}

func partToBlock(plan *convert.Plan, caps capability.Capabilities, idx int, p content.Part) (Content, bool) {
	switch v := p.(type) {
	case content.Text:
		return Content{Type: "text", Text: v.Text}, true

	case content.Blob:
		return imageBlock(plan, caps, idx, v)

	case content.ToolUse:
		input := v.Args
		if len(input) == 0 {
			input = json.RawMessage("null")
		}
		return Content{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input}, true

	case content.ToolResult:
		return toolResultBlock(plan, caps, v)

	default:
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  p.PartKind(),
			Provider:  plan.Provider,
			Reason:    "no messages API representation",
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "no messages API representation"})
		return Content{}, false
	}
}

func imageBlock(plan *convert.Plan, caps capability.Capabilities, idx int, b content.Blob) (Content, bool) {
	data, ok := b.Ref.(content.Base64Data)
	if !ok {
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  b.PartKind(),
			Provider:  plan.Provider,
			Reason:    "URI blobs cannot be sent inline",
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "URI blobs cannot be sent inline"})
		return Content{}, false
	}

	if !caps.SupportsMIME(b.MIMEType) {
		plan.AddError(&convert.UnsupportedMIMETypeError{MIMEType: b.MIMEType, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "unsupported MIME type"})
		return Content{}, false
	}
	if !caps.CanAcceptBase64(data.Size()) {
		plan.AddError(&convert.Base64TooLargeError{Size: data.Size(), MaxSize: caps.MaxBase64Size, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: b.PartKind(), Reason: "inline payload over the size limit"})
		return Content{}, false
	}

	return Content{
		Type:   "image",
		Source: &Source{Type: "base64", MediaType: b.MIMEType, Data: data.Data},
	}, true
}

// toolResultBlock maps a tool result directly when every part is text or an
// acceptable inline image; otherwise the whole result is flattened through
// the tool-result codec into a single text block so nothing is truncated.
func toolResultBlock(plan *convert.Plan, caps capability.Capabilities, tr content.ToolResult) (Content, bool) {
	block := Content{Type: "tool_result", ToolUseID: tr.ID}
	if isErr, ok := tr.Ext.GetBool(extNS, "is_error"); ok {
		block.IsError = &isErr
	}

	if blocks, ok := directResultContent(caps, tr.Parts); ok {
		block.Content = blocks
		return block, true
	}

	envelope, err := toolcodec.Encode(tr.Name, tr.Parts, tr.Ext)
	if err != nil {
		plan.AddError(&convert.MessageConversionError{Detail: "encode tool result content", Err: err})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: tr.PartKind(), Reason: "tool result content could not be encoded"})
		return Content{}, false
	}

	plan.AddAction(convert.Action{
		Kind:         convert.Shadow,
		OriginalType: tr.PartKind(),
		SimplifiedTo: "text",
		Reason:       "tool result parts beyond text and images flatten to one text block",
	})
	block.Content = []Content{{Type: "text", Text: envelope}}
	return block, true
}

func directResultContent(caps capability.Capabilities, parts []content.Part) ([]Content, bool) {
	var blocks []Content
	for _, p := range parts {
		switch v := p.(type) {
		case content.Text:
			blocks = append(blocks, Content{Type: "text", Text: v.Text})
		case content.Blob:
			data, ok := v.Ref.(content.Base64Data)
			if !ok || !caps.SupportsMIME(v.MIMEType) || !caps.CanAcceptBase64(data.Size()) {
				return nil, false
			}
			blocks = append(blocks, Content{
				Type:   "image",
				Source: &Source{Type: "base64", MediaType: v.MIMEType, Data: data.Data},
			})
		default:
			return nil, false
		}
	}
	return blocks, true
}

func roleString(r role.Role) string {
	if r == role.Assistant {
		return "assistant"
	}
	return "user"
}

func convertTools(plan *convert.Plan, tools []tool.Tool) []Tool {
	var out []Tool
	for _, t := range tools {
		if t.IsGemini() {
			plan.AddWarning("gemini tool declarations have no messages API equivalent")
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: "gemini_tool", Reason: "no messages API equivalent"})
			continue
		}
		for _, fn := range t.Functions {
			schema := fn.Parameters
			if len(schema) == 0 {
				schema = json.RawMessage(`{"type":"object"}`)
			}
			out = append(out, Tool{Name: fn.Name, Description: fn.Description, InputSchema: schema})
		}
	}
	return out
}

// FromRequest reconstructs a canonical request from a messages API request
// body. Tool results are correlated back to the calls that produced them by
// scanning every tool_use block first.
func FromRequest(wire ChatRequest) (request.ModelRequest, error) {
	var out request.ModelRequest

	toolNames := make(map[string]string)
	for _, wm := range wire.Messages {
		for _, b := range wm.Content {
			if b.Type == "tool_use" {
				toolNames[b.ID] = b.Name
			}
		}
	}

	if wire.System != nil {
		sys, err := systemMessage(*wire.System)
		if err != nil {
			return request.ModelRequest{}, err
		}
		out.System = sys
	}

	for _, wm := range wire.Messages {
		r := role.User
		if wm.Role == "assistant" {
			r = role.Assistant
		}

		var parts []content.Part
		for _, b := range wm.Content {
			part, err := blockToPart(b, toolNames)
			if err != nil {
				return request.ModelRequest{}, err
			}
			parts = append(parts, part)
		}
		out.Messages = append(out.Messages, message.New(r, parts...))
	}

	if len(wire.Tools) > 0 {
		fns := make([]tool.Function, 0, len(wire.Tools))
		for _, t := range wire.Tools {
			fns = append(fns, tool.Function{Name: t.Name, Description: t.Description, Parameters: t.InputSchema})
		}
		out.Tools = []tool.Tool{tool.NewFunctions(fns...)}
	}

	return out, nil
}

func systemMessage(sp SystemPrompt) (*message.Message, error) {
	if sp.Blocks == nil {
		m := message.NewText(role.System, sp.Text)
		return &m, nil
	}

	var parts []content.Part
	for _, b := range sp.Blocks {
		if b.Type != "text" {
			return nil, convert.MessageConversionf("system content block %q is not text", b.Type)
		}
		parts = append(parts, content.NewText(b.Text))
	}
	m := message.New(role.System, parts...)
	return &m, nil
}

func blockToPart(b Content, toolNames map[string]string) (content.Part, error) {
	switch b.Type {
	case "text":
		return content.NewText(b.Text), nil

	case "image":
		if b.Source == nil || b.Source.Type != "base64" {
			return nil, convert.MessageConversionf("image block without base64 source")
		}
		return content.NewBlobBase64(b.Source.Data, b.Source.MediaType), nil

	case "tool_use":
		return content.ToolUse{ID: b.ID, Name: b.Name, Args: b.Input}, nil

	case "tool_result":
		return toolResultPart(b, toolNames)

	case "thinking":
		return content.Text{
			Text: b.Thinking,
			Ext:  content.Ext{}.SetBool(extNS, "thinking", true),
		}, nil

	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal %s block: %w", b.Type, err)
		}
		return content.Opaque{Provider: provider.Anthropic, Kind: b.Type, Payload: payload}, nil
	}
}

func toolResultPart(b Content, toolNames map[string]string) (content.Part, error) {
	name := toolNames[b.ToolUseID]

	var (
		parts []content.Part
		ext   content.Ext
	)

	if len(b.Content) == 1 && b.Content[0].Type == "text" && toolcodec.IsEncoded(b.Content[0].Text) {
		decodedName, decodedParts, decodedExt, err := toolcodec.Decode(b.Content[0].Text)
		if err != nil {
			return nil, &convert.MessageConversionError{Detail: "decode tool result content", Err: err}
		}
		if name == "" {
			name = decodedName
		}
		parts = decodedParts
		ext = decodedExt
	} else {
		for _, nested := range b.Content {
			part, err := blockToPart(nested, toolNames)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
	}

	if name == "" {
		name = "unknown"
	}
	if b.IsError != nil {
		ext = ext.SetBool(extNS, "is_error", *b.IsError)
	}

	return content.ToolResult{ID: b.ToolUseID, Name: name, Parts: parts, Ext: ext}, nil
}

// FromResponse converts a messages API response into a canonical model
// response. Thinking blocks become text tagged with the anthropic.thinking
// ext flag; their signature is dropped.
func FromResponse(resp ChatResponse) (request.ModelResponse, error) {
	var parts []content.Part
	for _, b := range resp.Content {
		part, err := blockToPart(b, nil)
		if err != nil {
			return request.ModelResponse{}, err
		}
		parts = append(parts, part)
	}

	u := usage.Usage{Requests: 1}
	u.AddInput(usage.Text, uint64(resp.Usage.InputTokens))
	u.AddOutput(usage.Text, uint64(resp.Usage.OutputTokens))

	return request.ModelResponse{
		Message:    message.New(role.Assistant, parts...),
		ModelName:  resp.Model,
		VendorName: provider.Anthropic,
		Usage:      u,
	}, nil
}
