// Package tool defines the tool declarations a model can be offered.
package tool

import "encoding/json"

// Function describes one callable function: a name, an optional description,
// and a JSON Schema for its parameters.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Tool is one entry in a request's tool list. Exactly one field is set:
// Functions carries a batch of vendor-neutral function declarations;
// GeminiTool carries an opaque Gemini-only tool configuration (code
// execution, search grounding) that no other provider can represent.
type Tool struct {
	Functions  []Function      `json:"functions,omitempty"`
	GeminiTool json.RawMessage `json:"gemini_tool,omitempty"`
}

// NewFunctions wraps function declarations into a single Tool batch.
func NewFunctions(fns ...Function) Tool {
	return Tool{Functions: fns}
}

// NewGeminiTool wraps an opaque Gemini tool configuration.
func NewGeminiTool(payload json.RawMessage) Tool {
	return Tool{GeminiTool: payload}
}

// IsGemini reports whether t is the Gemini-only opaque variant.
func (t Tool) IsGemini() bool {
	return len(t.GeminiTool) > 0
}

// FlattenFunctions collects every function declaration across a tool list,
// preserving order. Gemini-only entries contribute nothing.
func FlattenFunctions(tools []Tool) []Function {
	var fns []Function
	for _, t := range tools {
		fns = append(fns, t.Functions...)
	}
	return fns
}
