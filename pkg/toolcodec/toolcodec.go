// Package toolcodec flattens structured tool results into a single string
// and restores them exactly.
//
// Several vendor chat formats only accept plain text in tool-role messages.
// To move a named, possibly multi-part tool result through such a format,
// converters encode it into a self-describing JSON envelope and decode it on
// the way back:
//
//	{"ai_ox_tool_result": {"name": "...", "content": [parts...], "ext": {...}}}
//
// The envelope key is reserved. Tool output that is itself JSON and happens
// to carry this exact key with a well-formed payload would be mistaken for
// an encoded result; that collision is a documented limitation of the
// format. Converters must never encode an already-encoded payload a second
// time; use IsEncoded to guard.
package toolcodec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/lingua/pkg/chats/content"
)

// EnvelopeKey is the reserved top-level JSON key marking encoded payloads.
const EnvelopeKey = "ai_ox_tool_result"

type payloadJSON struct {
	Name    json.RawMessage    `json:"name,omitempty"`
	Content *[]json.RawMessage `json:"content,omitempty"`
	Ext     content.Ext        `json:"ext,omitempty"`
}

// Encode serializes a named tool result and its parts into the envelope
// format. Parts may nest arbitrarily, including further tool results. A nil
// or empty ext is omitted from the payload.
func Encode(name string, parts []content.Part, ext content.Ext) (string, error) {
	rawName, err := json.Marshal(name)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	rawParts, err := content.MarshalParts(parts)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	if rawParts == nil {
		rawParts = []json.RawMessage{}
	}
	payload := payloadJSON{Name: rawName, Content: &rawParts}
	if len(ext) > 0 {
		payload.Ext = ext
	}
	data, err := json.Marshal(map[string]payloadJSON{EnvelopeKey: payload})
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}

// Decode parses an encoded payload back into the tool name, its parts, and
// any extensions. It fails, never guesses, when the envelope key is absent,
// the name is not a string, the content array is missing, or any nested
// part does not parse.
func Decode(s string) (string, []content.Part, content.Ext, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return "", nil, nil, fmt.Errorf("decode tool result: %w", err)
	}
	raw, ok := env[EnvelopeKey]
	if !ok {
		return "", nil, nil, errors.New("missing ai_ox_tool_result in tool content")
	}

	var payload payloadJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", nil, nil, errors.New("missing ai_ox_tool_result in tool content")
	}

	var name string
	if len(payload.Name) == 0 || json.Unmarshal(payload.Name, &name) != nil {
		return "", nil, nil, errors.New("tool result missing name")
	}
	if payload.Content == nil {
		return "", nil, nil, errors.New("tool result missing content")
	}

	parts := make([]content.Part, 0, len(*payload.Content))
	for i, rawPart := range *payload.Content {
		p, err := content.UnmarshalPart(rawPart)
		if err != nil {
			return "", nil, nil, fmt.Errorf("tool result part %d: %w", i, err)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		parts = nil
	}
	return name, parts, payload.Ext, nil
}

// IsEncoded reports whether s is a well-formed encoded tool result. It
// requires the full structure to validate, so arbitrary JSON that merely
// mentions the envelope key does not pass.
func IsEncoded(s string) bool {
	_, _, _, err := Decode(s)
	return err == nil
}

// HasEnvelope reports whether s is a JSON object carrying the envelope key
// at the top level, regardless of whether the payload inside validates.
// Converters use it to tell a malformed envelope, which must surface a
// decode error, apart from plain text.
func HasEnvelope(s string) bool {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return false
	}
	_, ok := env[EnvelopeKey]
	return ok
}
