// Package message defines the conversation message type shared by all
// provider converters.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/role"
)

// Message is a single conversation turn: a role, an ordered sequence of
// content parts, an optional timestamp, and provider extensions.
type Message struct {
	Role      role.Role      `json:"role"`
	Parts     []content.Part `json:"content"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
	Ext       content.Ext    `json:"ext,omitempty"`
}

// New builds a message from a role and content parts.
func New(r role.Role, parts ...content.Part) Message {
	return Message{Role: r, Parts: parts}
}

// NewText builds a message with a single text part.
func NewText(r role.Role, text string) Message {
	return New(r, content.Text{Text: text})
}

// TextContent concatenates the text of every Text part, in order.
func (m Message) TextContent() string {
	return content.Texts(m.Parts, "")
}

// ToolUses returns every ToolUse part, in order.
func (m Message) ToolUses() []content.ToolUse {
	var uses []content.ToolUse
	for _, p := range m.Parts {
		if tu, ok := p.(content.ToolUse); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// ToolResults returns every ToolResult part, in order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// Equal reports whether two messages carry the same role, parts, and
// extensions. Timestamps are compared with time.Time.Equal.
func (m Message) Equal(other Message) bool {
	if m.Role != other.Role || !m.Timestamp.Equal(other.Timestamp) {
		return false
	}
	if !content.EqualParts(m.Parts, other.Parts) {
		return false
	}
	return content.EqualExt(m.Ext, other.Ext)
}

type messageJSON struct {
	Role      role.Role         `json:"role"`
	Content   []json.RawMessage `json:"content"`
	Timestamp time.Time         `json:"timestamp,omitzero"`
	Ext       content.Ext       `json:"ext,omitempty"`
}

// MarshalJSON encodes the message with each part in its tagged wire form.
func (m Message) MarshalJSON() ([]byte, error) {
	raw, err := content.MarshalParts(m.Parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		Role:      m.Role,
		Content:   raw,
		Timestamp: m.Timestamp,
		Ext:       m.Ext,
	})
}

// UnmarshalJSON decodes a message, validating the role and every part.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	parts := make([]content.Part, 0, len(mj.Content))
	for i, raw := range mj.Content {
		p, err := content.UnmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("message part %d: %w", i, err)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		parts = nil
	}
	*m = Message{Role: mj.Role, Parts: parts, Timestamp: mj.Timestamp, Ext: mj.Ext}
	return nil
}
