// Package content defines the vendor-neutral content parts for LLM messages.
//
// A message body is an ordered sequence of [Part] values. The part set is
// closed: Text, Blob, ToolUse, ToolResult, and Opaque. Every part carries an
// [Ext] bag of namespaced vendor annotations so converters can round-trip
// provider-specific details without widening the core model.
package content

import (
	"encoding/json"
	"strings"
)

// Part kind tags. These double as the "type" values in the JSON interchange
// encoding, so they must stay stable.
const (
	KindText       = "text"
	KindBlob       = "blob"
	KindToolUse    = "tool_use"
	KindToolResult = "tool_result"
	KindOpaque     = "opaque"
)

// Part is a piece of content within a message.
//
// Parts are immutable value trees: construct them, read their fields, compare
// them with [Equal]. All transformation logic lives in the provider
// converters.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
	Ext  Ext
}

func (t Text) PartKind() string { return KindText }

// DataRef locates a Blob's bytes: either inline base64 data or an external
// URI, never both. The set is closed.
type DataRef interface {
	refKind() string
}

// Base64Data carries a Blob's bytes inline, base64 encoded.
type Base64Data struct {
	Data string
}

func (Base64Data) refKind() string { return "base64" }

// Size returns the length of the base64 string, the unit capability size
// limits are expressed in.
func (d Base64Data) Size() int { return len(d.Data) }

// URIData references a Blob's bytes by external location.
type URIData struct {
	URI string
}

func (URIData) refKind() string { return "uri" }

// Blob is a binary attachment such as an image, audio clip, or document.
type Blob struct {
	Ref         DataRef
	MIMEType    string
	Name        string // optional display name
	Description string // optional
	Ext         Ext
}

func (b Blob) PartKind() string { return KindBlob }

// IsImage reports whether the blob's MIME type is in the image family.
func (b Blob) IsImage() bool { return strings.HasPrefix(b.MIMEType, "image/") }

// IsAudio reports whether the blob's MIME type is in the audio family.
func (b Blob) IsAudio() bool { return strings.HasPrefix(b.MIMEType, "audio/") }

// IsVideo reports whether the blob's MIME type is in the video family.
func (b Blob) IsVideo() bool { return strings.HasPrefix(b.MIMEType, "video/") }

// Base64Size returns the inline payload size and true when the blob carries
// base64 data, or 0 and false for URI references.
func (b Blob) Base64Size() (int, bool) {
	if d, ok := b.Ref.(Base64Data); ok {
		return d.Size(), true
	}
	return 0, false
}

// ToolUse is a model-issued request to invoke a tool. ID correlates the call
// with a later ToolResult.
type ToolUse struct {
	ID   string
	Name string
	Args json.RawMessage
	Ext  Ext
}

func (tu ToolUse) PartKind() string { return KindToolUse }

// ToolResult is the outcome of a tool invocation. Parts may nest arbitrarily,
// including further ToolResult and ToolUse values; the structure is a tree,
// never a cycle. A ToolResult without a matching prior ToolUse is valid.
type ToolResult struct {
	ID    string
	Name  string
	Parts []Part
	Ext   Ext
}

func (tr ToolResult) PartKind() string { return KindToolResult }

// Opaque is a vendor-specific content block with no canonical equivalent. It
// round-trips back to the provider named in Provider and is unconvertible to
// every other provider.
type Opaque struct {
	Provider string
	Kind     string
	Payload  json.RawMessage
	Ext      Ext
}

func (o Opaque) PartKind() string { return KindOpaque }

// NewText builds a Text part.
func NewText(text string) Text { return Text{Text: text} }

// NewBlobBase64 builds a Blob with inline base64 data.
func NewBlobBase64(data, mimeType string) Blob {
	return Blob{Ref: Base64Data{Data: data}, MIMEType: mimeType}
}

// NewBlobURI builds a Blob referencing an external location.
func NewBlobURI(uri, mimeType string) Blob {
	return Blob{Ref: URIData{URI: uri}, MIMEType: mimeType}
}

// Texts joins the Text parts of a sequence with sep, skipping other kinds.
func Texts(parts []Part, sep string) string {
	var b strings.Builder
	first := true
	for _, p := range parts {
		t, ok := p.(Text)
		if !ok {
			continue
		}
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(t.Text)
		first = false
	}
	return b.String()
}
