package gemini

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
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

// codeInterpreterName is the canonical tool name assigned to Gemini code
// execution parts, which carry no name of their own.
const codeInterpreterName = "code_interpreter"

// Convert maps a canonical request onto the generateContent wire format.
// System content is demoted to a leading user turn (recorded as a Shadow
// action on the plan) and consecutive same-role turns merge so the contents
// list alternates user/model as the API requires.
func Convert(req request.ModelRequest, policy convert.Policy) (GenerateRequest, *convert.Plan, error) {
	plan := convert.NewPlan(provider.Gemini, policy)
	caps := capability.Gemini()

	out := GenerateRequest{}

	callNames := toolUseNames(req.Messages)

	if req.System != nil {
		plan.AddWarning("system content demoted to a leading user turn; the contents list has no system role")
		plan.AddAction(convert.Action{
			Kind:         convert.Shadow,
			OriginalType: "system",
			SimplifiedTo: "user turn",
		})
		appendMessage(plan, &out.Contents, *req.System, caps, callNames)
	}

	for _, m := range req.Messages {
		appendMessage(plan, &out.Contents, m, caps, callNames)
	}

	out.Tools = convertTools(plan, req.Tools)

	if policy == convert.Strict && plan.HasErrors() {
		return GenerateRequest{}, plan, plan.Err()
	}

	return out, plan, nil
}

// ToRequest converts req under the Strict policy, for callers that do not
// need the plan.
func ToRequest(req request.ModelRequest) (GenerateRequest, error) {
	wire, _, err := Convert(req, convert.Strict)
	return wire, err
}

// toolUseNames maps tool call ids to function names across the whole
// conversation, so results missing a name can still be attributed.
func toolUseNames(msgs []message.Message) map[string]string {
	names := make(map[string]string)
	for _, m := range msgs {
		for _, u := range m.ToolUses() {
			names[u.ID] = u.Name
		}
	}
	return names
}

func appendMessage(plan *convert.Plan, contents *[]Content, m message.Message, caps capability.Capabilities, callNames map[string]string) {
	wireRole := roleString(m.Role)

	for i, p := range m.Parts {
		w, ok := partToWire(plan, i, p, caps, callNames)
		if !ok {
			continue
		}

		if len(*contents) > 0 && (*contents)[len(*contents)-1].Role == wireRole {
			last := &(*contents)[len(*contents)-1]
			last.Parts = append(last.Parts, w)
			continue
		}

		*contents = append(*contents, Content{Role: wireRole, Parts: []Part{w}})
	}
}

func partToWire(plan *convert.Plan, idx int, p content.Part, caps capability.Capabilities, callNames map[string]string) (Part, bool) {
	switch v := p.(type) {
	case content.Text:
		return Part{Text: v.Text}, true

	case content.Blob:
		return blobPart(plan, idx, v, caps)

	case content.ToolUse:
		return Part{FunctionCall: &FunctionCall{ID: v.ID, Name: v.Name, Args: v.Args}}, true

	case content.ToolResult:
		name := v.Name
		if name == "" {
			name = callNames[v.ID]
		}
		if name == "" {
			plan.AddError(&convert.MessageConversionError{
				Detail: fmt.Sprintf("tool result %q has no function name and no issuing call in history", v.ID),
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "function name unresolvable"})
			return Part{}, false
		}
		resp, err := toolResultResponse(v)
		if err != nil {
			plan.AddError(&convert.MessageConversionError{Detail: "encode tool result content", Err: err})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "tool result content not encodable"})
			return Part{}, false
		}
		return Part{FunctionResponse: &FunctionResponse{ID: v.ID, Name: name, Response: resp}}, true

	case content.Opaque:
		if v.Provider != provider.Gemini {
			plan.AddError(&convert.UnsupportedContentError{
				PartIndex: idx,
				PartType:  p.PartKind(),
				Provider:  plan.Provider,
				Reason:    fmt.Sprintf("opaque content belongs to provider %q", v.Provider),
			})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "foreign opaque content"})
			return Part{}, false
		}
		var w Part
		if err := json.Unmarshal(v.Payload, &w); err != nil {
			plan.AddError(&convert.MessageConversionError{Detail: "decode opaque gemini part", Err: err})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "undecodable opaque payload"})
			return Part{}, false
		}
		return w, true

	default:
		plan.AddError(&convert.UnsupportedContentError{
			PartIndex: idx,
			PartType:  p.PartKind(),
			Provider:  plan.Provider,
			Reason:    "no generateContent representation",
		})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: p.PartKind(), Reason: "no generateContent representation"})
		return Part{}, false
	}
}

func blobPart(plan *convert.Plan, idx int, v content.Blob, caps capability.Capabilities) (Part, bool) {
	if !caps.SupportsMIME(v.MIMEType) {
		plan.AddError(&convert.UnsupportedMIMETypeError{MIMEType: v.MIMEType, Provider: plan.Provider})
		plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "unsupported MIME type"})
		return Part{}, false
	}

	switch ref := v.Ref.(type) {
	case content.Base64Data:
		if !caps.CanAcceptBase64(ref.Size()) {
			plan.AddError(&convert.Base64TooLargeError{Size: ref.Size(), MaxSize: caps.MaxBase64Size, Provider: plan.Provider})
			plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "inline payload too large"})
			return Part{}, false
		}
		return Part{InlineData: &Blob{MIMEType: v.MIMEType, Data: ref.Data}}, true

	case content.URIData:
		return Part{FileData: &FileData{FileURI: ref.URI, MIMEType: v.MIMEType, DisplayName: v.Name}}, true
	}

	plan.AddError(&convert.UnsupportedContentError{
		PartIndex: idx,
		PartType:  v.PartKind(),
		Provider:  plan.Provider,
		Reason:    "blob carries no data reference",
	})
	plan.AddAction(convert.Action{Kind: convert.Omit, OriginalType: v.PartKind(), Reason: "blob carries no data reference"})
	return Part{}, false
}

// toolResultResponse encodes a tool result into the functionResponse
// response object. A lone text part passes through raw so machine-generated
// JSON survives byte for byte; everything richer maps structurally through
// the codec envelope, which is itself a JSON object and so fits the response
// slot without flattening.
func toolResultResponse(v content.ToolResult) (json.RawMessage, error) {
	if len(v.Parts) == 1 && len(v.Ext) == 0 {
		if t, ok := v.Parts[0].(content.Text); ok {
			raw := []byte(t.Text)
			if json.Valid(raw) {
				if strings.HasPrefix(strings.TrimSpace(t.Text), "{") {
					return json.RawMessage(raw), nil
				}
				return json.RawMessage(`{"result":` + t.Text + `}`), nil
			}
			quoted, _ := json.Marshal(t.Text)
			return json.RawMessage(`{"result":` + string(quoted) + `}`), nil
		}
	}

	envelope, err := toolcodec.Encode(v.Name, v.Parts, v.Ext)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(envelope), nil
}

// toolResultParts reverses toolResultResponse.
func toolResultParts(fr FunctionResponse) (string, []content.Part, content.Ext, error) {
	raw := fr.Response

	if toolcodec.IsEncoded(string(raw)) {
		name, parts, ext, err := toolcodec.Decode(string(raw))
		if err != nil {
			return "", nil, nil, &convert.MessageConversionError{Detail: "decode tool result content", Err: err}
		}
		if fr.Name != "" {
			name = fr.Name
		}
		return name, parts, ext, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if r, ok := obj["result"]; ok && len(obj) == 1 {
			var s string
			if err := json.Unmarshal(r, &s); err == nil {
				return fr.Name, []content.Part{content.NewText(s)}, nil, nil
			}
			return fr.Name, []content.Part{content.NewText(string(r))}, nil, nil
		}
	}

	return fr.Name, []content.Part{content.NewText(string(raw))}, nil, nil
}

func roleString(r role.Role) string {
	if r == role.Assistant {
		return "model"
	}
	return "user"
}

func convertTools(plan *convert.Plan, tools []tool.Tool) []json.RawMessage {
	var out []json.RawMessage
	for _, t := range tools {
		if t.IsGemini() {
			out = append(out, t.GeminiTool)
			continue
		}

		decls := lo.Map(t.Functions, func(fn tool.Function, _ int) FunctionDeclaration {
			return FunctionDeclaration{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  sanitizeSchema(fn.Parameters),
			}
		})
		if len(decls) == 0 {
			continue
		}

		b, err := json.Marshal(map[string][]FunctionDeclaration{"functionDeclarations": decls})
		if err != nil {
			plan.AddError(&convert.MessageConversionError{Detail: "encode function declarations", Err: err})
			continue
		}
		out = append(out, b)
	}
	return out
}

// sanitizeSchema removes JSON Schema keywords the Gemini API rejects
// ($schema, additionalProperties), recursing into nested property and item
// schemas.
func sanitizeSchema(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{"type":"object"}`)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}

	delete(obj, "$schema")
	delete(obj, "additionalProperties")

	if props, ok := obj["properties"]; ok {
		var propMap map[string]json.RawMessage
		if err := json.Unmarshal(props, &propMap); err == nil {
			for k, v := range propMap {
				propMap[k] = sanitizeSchema(v)
			}
			if b, err := json.Marshal(propMap); err == nil {
				obj["properties"] = b
			}
		}
	}

	if items, ok := obj["items"]; ok {
		obj["items"] = sanitizeSchema(items)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return b
}

// generateCallID synthesizes a correlation id for function calls that arrive
// without one. Ids must never collide across unrelated calls, so the suffix
// is random.
func generateCallID(name string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("call_%s_%s", name, hex.EncodeToString(b))
}

// FromRequest converts a wire request back to canonical form. A
// systemInstruction lifts into the request's System message; demoted system
// turns are indistinguishable from user turns and stay that way.
func FromRequest(wire GenerateRequest) (request.ModelRequest, error) {
	out := request.ModelRequest{}

	if wire.SystemInstruction != nil {
		var parts []content.Part
		for _, p := range wire.SystemInstruction.Parts {
			if p.Text == "" {
				return request.ModelRequest{}, &convert.MessageConversionError{
					Detail: "system instruction parts must be text",
				}
			}
			parts = append(parts, content.NewText(p.Text))
		}
		sys := message.New(role.System, parts...)
		out.System = &sys
	}

	for _, c := range wire.Contents {
		var parts []content.Part
		for _, p := range c.Parts {
			part, ok, err := partFromWire(p)
			if err != nil {
				return request.ModelRequest{}, err
			}
			if !ok {
				continue
			}
			parts = append(parts, part)
		}

		r := role.User
		if c.Role == "model" {
			r = role.Assistant
		}
		out.Messages = append(out.Messages, message.New(r, parts...))
	}

	tools, err := toolsFromWire(wire.Tools)
	if err != nil {
		return request.ModelRequest{}, err
	}
	out.Tools = tools

	return out, nil
}

// partFromWire maps one wire part to a canonical part. The bool is false for
// empty parts, which the API occasionally emits.
func partFromWire(p Part) (content.Part, bool, error) {
	switch {
	case p.FunctionCall != nil:
		id := p.FunctionCall.ID
		if id == "" {
			id = generateCallID(p.FunctionCall.Name)
		}
		return content.ToolUse{ID: id, Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}, true, nil

	case p.FunctionResponse != nil:
		name, parts, ext, err := toolResultParts(*p.FunctionResponse)
		if err != nil {
			return nil, false, err
		}
		return content.ToolResult{ID: p.FunctionResponse.ID, Name: name, Parts: parts, Ext: ext}, true, nil

	case p.ExecutableCode != nil:
		args, err := json.Marshal(map[string]string{
			"language": p.ExecutableCode.Language,
			"code":     p.ExecutableCode.Code,
		})
		if err != nil {
			return nil, false, &convert.MessageConversionError{Detail: "encode executable code", Err: err}
		}
		return content.ToolUse{Name: codeInterpreterName, Args: args}, true, nil

	case p.CodeExecutionResult != nil:
		body, err := json.Marshal(map[string]string{
			"outcome": p.CodeExecutionResult.Outcome,
			"output":  p.CodeExecutionResult.Output,
		})
		if err != nil {
			return nil, false, &convert.MessageConversionError{Detail: "encode code execution result", Err: err}
		}
		return content.ToolResult{
			Name:  codeInterpreterName,
			Parts: []content.Part{content.NewText(string(body))},
		}, true, nil

	case p.InlineData != nil:
		return content.NewBlobBase64(p.InlineData.Data, p.InlineData.MIMEType), true, nil

	case p.FileData != nil:
		b := content.NewBlobURI(p.FileData.FileURI, p.FileData.MIMEType)
		b.Name = p.FileData.DisplayName
		return b, true, nil

	case p.Text != "":
		return content.NewText(p.Text), true, nil
	}

	return nil, false, nil
}

func toolsFromWire(raws []json.RawMessage) ([]tool.Tool, error) {
	var out []tool.Tool
	for _, raw := range raws {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, &convert.MessageConversionError{Detail: "parse tool declaration", Err: err}
		}

		declsRaw, ok := probe["functionDeclarations"]
		if !ok {
			out = append(out, tool.NewGeminiTool(raw))
			continue
		}

		var decls []FunctionDeclaration
		if err := json.Unmarshal(declsRaw, &decls); err != nil {
			return nil, &convert.MessageConversionError{Detail: "parse function declarations", Err: err}
		}

		fns := lo.Map(decls, func(d FunctionDeclaration, _ int) tool.Function {
			return tool.Function{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
		})
		out = append(out, tool.NewFunctions(fns...))
	}
	return out, nil
}

// FromResponse converts a generateContent response to a canonical response.
func FromResponse(resp GenerateResponse) (request.ModelResponse, error) {
	if len(resp.Candidates) == 0 {
		return request.ModelResponse{}, fmt.Errorf("empty candidates in response")
	}

	var parts []content.Part
	for _, p := range resp.Candidates[0].Content.Parts {
		part, ok, err := partFromWire(p)
		if err != nil {
			return request.ModelResponse{}, err
		}
		if !ok {
			continue
		}
		parts = append(parts, part)
	}

	u := usageFromMetadata(resp.UsageMetadata)
	u.Requests = 1

	return request.ModelResponse{
		Message:    message.New(role.Assistant, parts...),
		ModelName:  resp.ModelVersion,
		VendorName: provider.Gemini,
		Usage:      u,
	}, nil
}

// usageFromMetadata maps usage metadata into modality-keyed accounting.
// Per-modality detail lists win over the bulk counters, which are their
// sums.
func usageFromMetadata(meta *UsageMetadata) usage.Usage {
	u := usage.Usage{}
	if meta == nil {
		return u
	}
	u.Requests = 1

	if len(meta.PromptTokensDetails) > 0 {
		for _, d := range meta.PromptTokensDetails {
			u.AddInput(mapModality(d.Modality), uint64(d.TokenCount))
		}
	} else if meta.PromptTokenCount > 0 {
		u.AddInput(usage.Text, uint64(meta.PromptTokenCount))
	}

	if len(meta.CandidatesTokensDetails) > 0 {
		for _, d := range meta.CandidatesTokensDetails {
			u.AddOutput(mapModality(d.Modality), uint64(d.TokenCount))
		}
	} else if meta.CandidatesTokenCount > 0 {
		u.AddOutput(usage.Text, uint64(meta.CandidatesTokenCount))
	}

	if len(meta.CacheTokensDetails) > 0 {
		for _, d := range meta.CacheTokensDetails {
			u.AddCache(mapModality(d.Modality), uint64(d.TokenCount))
		}
	} else if meta.CachedContentTokenCount > 0 {
		u.AddCache(usage.Text, uint64(meta.CachedContentTokenCount))
	}

	if len(meta.ToolUsePromptTokensDetails) > 0 {
		for _, d := range meta.ToolUsePromptTokensDetails {
			u.AddTool(mapModality(d.Modality), uint64(d.TokenCount))
		}
	} else if meta.ToolUsePromptTokenCount > 0 {
		u.AddTool(usage.Text, uint64(meta.ToolUsePromptTokenCount))
	}

	if meta.CachedContentTokenCount > 0 {
		u.CacheReadTokens = lo.ToPtr(uint64(meta.CachedContentTokenCount))
	}
	if meta.ThoughtsTokenCount > 0 {
		u.ThoughtsTokens = lo.ToPtr(uint64(meta.ThoughtsTokenCount))
	}

	return u
}

func mapModality(m string) usage.Modality {
	switch m {
	case "TEXT":
		return usage.Text
	case "IMAGE":
		return usage.Image
	case "VIDEO":
		return usage.Video
	case "AUDIO":
		return usage.Audio
	case "DOCUMENT":
		return usage.Document
	}
	return usage.Modality(strings.ToLower(m))
}
