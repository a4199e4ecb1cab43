// Package capability declares what content each provider accepts. Tables
// are fixed at startup; converters consult them to gate blob and tool
// content before building a wire request.
package capability

import (
	"maps"

	"github.com/germanamz/lingua/pkg/providers/provider"
)

// Capabilities describes the content types and features one provider
// supports. Each constructor builds a fresh value, so a caller mutating its
// copy cannot affect other callers.
type Capabilities struct {
	// Provider names the table entry.
	Provider string

	// SupportsBase64BlobInput reports whether inline base64 data is accepted.
	SupportsBase64BlobInput bool
	// SupportsBlobURIInput reports whether URI references are accepted.
	SupportsBlobURIInput bool

	SupportsImages bool
	SupportsAudio  bool
	SupportsFiles  bool

	SupportsToolUse bool
	// SupportsToolResultParts reports whether tool results may carry
	// structured multi-part content rather than a single flattened string.
	SupportsToolResultParts bool

	SupportsMetadataPassthrough bool

	// AllowedMIMEInputs is the accepted MIME set. Entries ending in "/*"
	// match any subtype.
	AllowedMIMEInputs map[string]bool

	// MaxBase64Size caps inline payload bytes. Zero means no limit.
	MaxBase64Size int
}

// SupportsMIME reports whether a MIME type is accepted, by exact match or a
// "type/*" wildcard entry.
func (c Capabilities) SupportsMIME(mimeType string) bool {
	if c.AllowedMIMEInputs[mimeType] {
		return true
	}
	for allowed := range c.AllowedMIMEInputs {
		if len(allowed) > 2 && allowed[len(allowed)-2:] == "/*" {
			prefix := allowed[:len(allowed)-2]
			if len(mimeType) >= len(prefix) && mimeType[:len(prefix)] == prefix {
				return true
			}
		}
	}
	return false
}

// CanAcceptBase64 reports whether an inline payload of the given byte size
// is accepted: false when base64 input is unsupported at all, otherwise
// true iff the size fits under MaxBase64Size (no limit when zero).
func (c Capabilities) CanAcceptBase64(size int) bool {
	if !c.SupportsBase64BlobInput {
		return false
	}
	if c.MaxBase64Size == 0 {
		return true
	}
	return size <= c.MaxBase64Size
}

// Anthropic returns the Claude capability table.
func Anthropic() Capabilities {
	return Capabilities{
		Provider:                provider.Anthropic,
		SupportsBase64BlobInput: true,
		SupportsImages:          true,
		SupportsToolUse:         true,
		// Tool results accept only text and image blocks.
		SupportsToolResultParts: false,
		AllowedMIMEInputs: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		MaxBase64Size: 5 * 1024 * 1024,
	}
}

// OpenAI returns the GPT capability table.
func OpenAI() Capabilities {
	return Capabilities{
		Provider:                provider.OpenAI,
		SupportsBase64BlobInput: true,
		SupportsBlobURIInput:    true,
		SupportsImages:          true,
		SupportsAudio:           true,
		SupportsToolUse:         true,
		SupportsToolResultParts: false,
		AllowedMIMEInputs: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
			"audio/wav":  true,
			"audio/mp3":  true,
			"audio/ogg":  true,
		},
	}
}

// Gemini returns the Gemini capability table.
func Gemini() Capabilities {
	return Capabilities{
		Provider:                provider.Gemini,
		SupportsBase64BlobInput: true,
		SupportsBlobURIInput:    true,
		SupportsImages:          true,
		SupportsAudio:           true,
		SupportsFiles:           true,
		SupportsToolUse:         true,
		SupportsToolResultParts: true,
		AllowedMIMEInputs: map[string]bool{
			"image/*":         true,
			"audio/*":         true,
			"video/*":         true,
			"application/pdf": true,
		},
	}
}

// Mistral returns the Mistral capability table. Mistral takes image and
// audio URIs but no inline base64.
func Mistral() Capabilities {
	return Capabilities{
		Provider:                provider.Mistral,
		SupportsBase64BlobInput: false,
		SupportsBlobURIInput:    true,
		SupportsImages:          true,
		SupportsAudio:           true,
		SupportsToolUse:         true,
		SupportsToolResultParts: false,
		AllowedMIMEInputs: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"audio/*":    true,
		},
	}
}

// OpenRouter returns a conservative default table. OpenRouter proxies many
// models, so real limits depend on the routed model.
func OpenRouter() Capabilities {
	return Capabilities{
		Provider:                provider.OpenRouter,
		SupportsBase64BlobInput: true,
		SupportsImages:          true,
		SupportsToolUse:         true,
		SupportsToolResultParts: false,
		AllowedMIMEInputs: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
	}
}

// Groq returns the Groq capability table, a conservative OpenAI-family
// profile.
func Groq() Capabilities {
	return Capabilities{
		Provider:                provider.Groq,
		SupportsBase64BlobInput: true,
		SupportsImages:          true,
		SupportsToolUse:         true,
		SupportsToolResultParts: false,
		AllowedMIMEInputs: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
	}
}

// ForProvider looks up the table for a canonical provider name. The bool is
// false for unknown providers.
func ForProvider(name string) (Capabilities, bool) {
	switch name {
	case provider.Anthropic:
		return Anthropic(), true
	case provider.OpenAI:
		return OpenAI(), true
	case provider.Gemini:
		return Gemini(), true
	case provider.Mistral:
		return Mistral(), true
	case provider.OpenRouter:
		return OpenRouter(), true
	case provider.Groq:
		return Groq(), true
	}
	return Capabilities{}, false
}

// Clone returns an independent copy, including the MIME set.
func (c Capabilities) Clone() Capabilities {
	out := c
	out.AllowedMIMEInputs = maps.Clone(c.AllowedMIMEInputs)
	return out
}
