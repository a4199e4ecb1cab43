package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxNestingDepth bounds how deep nested tool-result trees may go when
// decoding untrusted input. The structure is a tree by construction, so the
// bound exists only to stop adversarial payloads from exhausting the stack.
const MaxNestingDepth = 64

// ErrTooDeep is returned when decoded content nests beyond MaxNestingDepth.
var ErrTooDeep = errors.New("content: nesting depth exceeds limit")

// refJSON is the interchange form of a DataRef: exactly one field set.
type refJSON struct {
	Base64 *string `json:"base64,omitempty"`
	URI    *string `json:"uri,omitempty"`
}

// partJSON is the interchange form of every part variant, discriminated by
// Type. Unused fields stay zero.
type partJSON struct {
	Type        string            `json:"type"`
	Text        string            `json:"text,omitempty"`
	Ref         *refJSON          `json:"ref,omitempty"`
	MIMEType    string            `json:"mime_type,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	ID          string            `json:"id,omitempty"`
	Args        json.RawMessage   `json:"args,omitempty"`
	Parts       []json.RawMessage `json:"parts"`
	Provider    string            `json:"provider,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
	Ext         Ext               `json:"ext,omitempty"`
}

// MarshalJSON encodes the part as {"type":"text",...}.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
		Ext  Ext    `json:"ext,omitempty"`
	}{KindText, t.Text, t.Ext})
}

// MarshalJSON encodes the part as {"type":"blob","ref":{...},...}.
func (b Blob) MarshalJSON() ([]byte, error) {
	ref := &refJSON{}
	switch r := b.Ref.(type) {
	case Base64Data:
		ref.Base64 = &r.Data
	case URIData:
		ref.URI = &r.URI
	default:
		return nil, fmt.Errorf("content: blob has no data reference")
	}
	return json.Marshal(struct {
		Type        string   `json:"type"`
		Ref         *refJSON `json:"ref"`
		MIMEType    string   `json:"mime_type"`
		Name        string   `json:"name,omitempty"`
		Description string   `json:"description,omitempty"`
		Ext         Ext      `json:"ext,omitempty"`
	}{KindBlob, ref, b.MIMEType, b.Name, b.Description, b.Ext})
}

// MarshalJSON encodes the part as {"type":"tool_use",...}.
func (tu ToolUse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string          `json:"type"`
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Args json.RawMessage `json:"args,omitempty"`
		Ext  Ext             `json:"ext,omitempty"`
	}{KindToolUse, tu.ID, tu.Name, tu.Args, tu.Ext})
}

// MarshalJSON encodes the part as {"type":"tool_result",...,"parts":[...]}.
func (tr ToolResult) MarshalJSON() ([]byte, error) {
	parts, err := MarshalParts(tr.Parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type  string            `json:"type"`
		ID    string            `json:"id"`
		Name  string            `json:"name"`
		Parts []json.RawMessage `json:"parts"`
		Ext   Ext               `json:"ext,omitempty"`
	}{KindToolResult, tr.ID, tr.Name, parts, tr.Ext})
}

// MarshalJSON encodes the part as {"type":"opaque",...}.
func (o Opaque) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string          `json:"type"`
		Provider string          `json:"provider"`
		Kind     string          `json:"kind"`
		Payload  json.RawMessage `json:"payload,omitempty"`
		Ext      Ext             `json:"ext,omitempty"`
	}{KindOpaque, o.Provider, o.Kind, o.Payload, o.Ext})
}

// MarshalParts encodes each part in the sequence into its tagged
// interchange form.
func MarshalParts(parts []Part) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(parts))
	for i, p := range parts {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("content: marshal part %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// UnmarshalPart decodes one part from its interchange encoding. Unknown
// "type" tags and malformed variants are errors, never guesses.
func UnmarshalPart(data []byte) (Part, error) {
	return unmarshalPart(data, 0)
}

// UnmarshalParts decodes a JSON array of parts.
func UnmarshalParts(data []byte) ([]Part, error) {
	return unmarshalParts(data, 0)
}

func unmarshalParts(data []byte, depth int) ([]Part, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("content: decode part array: %w", err)
	}
	parts := make([]Part, 0, len(raws))
	for i, raw := range raws {
		p, err := unmarshalPart(raw, depth)
		if err != nil {
			return nil, fmt.Errorf("content: part %d: %w", i, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func unmarshalPart(data []byte, depth int) (Part, error) {
	if depth > MaxNestingDepth {
		return nil, ErrTooDeep
	}

	var pj partJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, err
	}

	switch pj.Type {
	case KindText:
		return Text{Text: pj.Text, Ext: pj.Ext}, nil

	case KindBlob:
		if pj.Ref == nil {
			return nil, errors.New("blob missing ref")
		}
		var ref DataRef
		switch {
		case pj.Ref.Base64 != nil && pj.Ref.URI != nil:
			return nil, errors.New("blob ref has both base64 and uri")
		case pj.Ref.Base64 != nil:
			ref = Base64Data{Data: *pj.Ref.Base64}
		case pj.Ref.URI != nil:
			ref = URIData{URI: *pj.Ref.URI}
		default:
			return nil, errors.New("blob ref has neither base64 nor uri")
		}
		return Blob{
			Ref:         ref,
			MIMEType:    pj.MIMEType,
			Name:        pj.Name,
			Description: pj.Description,
			Ext:         pj.Ext,
		}, nil

	case KindToolUse:
		return ToolUse{ID: pj.ID, Name: pj.Name, Args: pj.Args, Ext: pj.Ext}, nil

	case KindToolResult:
		parts := make([]Part, 0, len(pj.Parts))
		for i, raw := range pj.Parts {
			p, err := unmarshalPart(raw, depth+1)
			if err != nil {
				return nil, fmt.Errorf("tool_result part %d: %w", i, err)
			}
			parts = append(parts, p)
		}
		return ToolResult{ID: pj.ID, Name: pj.Name, Parts: parts, Ext: pj.Ext}, nil

	case KindOpaque:
		return Opaque{Provider: pj.Provider, Kind: pj.Kind, Payload: pj.Payload, Ext: pj.Ext}, nil

	case "":
		return nil, errors.New("part missing type tag")

	default:
		return nil, fmt.Errorf("unknown part type %q", pj.Type)
	}
}
