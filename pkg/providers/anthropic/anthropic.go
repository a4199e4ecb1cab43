// Package anthropic converts canonical requests to and from the Anthropic
// Messages API wire format and provides a Completer for it.
//
// Thinking blocks returned by the API are preserved as canonical text tagged
// with the "anthropic.thinking" ext flag. Their cryptographic signature has
// no canonical equivalent and is dropped; relayed thinking content is sent
// back as plain text.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

const messagesPath = "/v1/messages"

// defaultMaxTokens fills the required max_tokens field when the caller did
// not configure one.
const defaultMaxTokens = 4096

var _ provider.Completer = (*Adapter)(nil)

// Adapter implements provider.Completer for the Anthropic Messages API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the Anthropic API.
// The baseURL should be "https://api.anthropic.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{
		Key:    apiKey,
		Header: "x-api-key",
	}
	a.Name = model
	a.MaxTokens = defaultMaxTokens
	a.Headers = map[string]string{
		"anthropic-version": "2023-06-01",
	}
	a.HeaderParser = modeladapter.ParseAnthropicRateLimitHeaders

	return a
}

// Complete sends a conversation to the Anthropic Messages API and returns
// the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, a.Name, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	if a.MaxTokens > 0 {
		wire.MaxTokens = a.MaxTokens
	}
	if a.Temperature != 0 {
		t := a.Temperature
		wire.Temperature = &t
	}

	var resp ChatResponse
	if err := a.PostJSON(ctx, messagesPath, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	a.Usage.Add(out.Usage)

	return out, nil
}

// --- request types ---

// ChatRequest is the body posted to the messages endpoint. MaxTokens is
// required by the API.
type ChatRequest struct {
	Model         string        `json:"model"`
	Messages      []Message     `json:"messages"`
	MaxTokens     int           `json:"max_tokens"`
	System        *SystemPrompt `json:"system,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Stream        *bool         `json:"stream,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	TopK          *int          `json:"top_k,omitempty"`
	Tools         []Tool        `json:"tools,omitempty"`
	ToolChoice    *ToolChoice   `json:"tool_choice,omitempty"`
}

// Message is one conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is one content block, discriminated by Type: "text", "image",
// "tool_use", "tool_result", or "thinking".
type Content struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *Source `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string    `json:"tool_use_id,omitempty"`
	Content   []Content `json:"content,omitempty"`
	IsError   *bool     `json:"is_error,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Source carries inline image bytes.
type Source struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// SystemPrompt is the system field: a plain string, or content blocks when
// the prompt has more than one segment.
type SystemPrompt struct {
	Text   string
	Blocks []Content
}

func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &s.Blocks)
	}
	return json.Unmarshal(data, &s.Text)
}

// Tool declares a callable tool in a request.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice steers tool selection. Type is "auto", "any", or "tool"; Name
// is set for "tool".
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// --- response types ---

// ChatResponse is the non-streaming messages response.
type ChatResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Role         string    `json:"role"`
	Content      []Content `json:"content"`
	Model        string    `json:"model"`
	StopReason   string    `json:"stop_reason,omitempty"`
	StopSequence string    `json:"stop_sequence,omitempty"`
	Usage        Usage     `json:"usage"`
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
