// Package mistral converts canonical requests to and from the Mistral chat
// completions wire format and provides a Completer for La Plateforme. The
// format is close to the OpenAI dialect but diverges where it counts: user
// content is an array of typed parts and one canonical message may expand
// into several wire messages, tool declarations must omit an empty
// parameters object, and assistant tool calls carry their position in an
// index field.
package mistral

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// DefaultBaseURL is the Mistral API endpoint.
const DefaultBaseURL = "https://api.mistral.ai"

const completionsPath = "/v1/chat/completions"

var _ provider.Completer = (*Adapter)(nil)

// Adapter implements provider.Completer for the Mistral chat completions
// API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the Mistral API.
// The baseURL should be DefaultBaseURL unless tests override it.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.MaxTokens = 4096
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Complete sends a conversation to the Mistral chat completions API and
// returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, a.Name, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("mistral: %w", err)
	}

	if a.MaxTokens > 0 {
		wire.MaxTokens = lo.ToPtr(a.MaxTokens)
	}
	if a.Temperature != 0 {
		wire.Temperature = lo.ToPtr(a.Temperature)
	}

	var resp ChatResponse
	if err := a.PostJSON(ctx, completionsPath, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("mistral: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("mistral: %w", err)
	}

	a.Usage.Add(out.Usage)

	return out, nil
}

// ChatRequest is the REST body for the chat completions endpoint.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	MinTokens      *int            `json:"min_tokens,omitempty"`
	Stream         *bool           `json:"stream,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	RandomSeed     *int            `json:"random_seed,omitempty"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
	ToolChoice     json.RawMessage `json:"tool_choice,omitempty"`
	SafePrompt     *bool           `json:"safe_prompt,omitempty"`
}

// Message is one wire conversation turn.
type Message struct {
	Role       string         `json:"role"`
	Content    MessageContent `json:"content"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// MessageContent is a content field that is either one string or a list of
// typed parts. User turns carry parts; system, assistant and tool turns
// carry strings.
type MessageContent struct {
	Text  *string
	Parts []ContentPart
}

// TextContent wraps a plain string content value.
func TextContent(s string) MessageContent {
	return MessageContent{Text: &s}
}

// PartsContent wraps an array-of-parts content value. With no arguments the
// content is an empty array rather than null, which is how an empty user
// turn travels.
func PartsContent(parts ...ContentPart) MessageContent {
	if parts == nil {
		parts = []ContentPart{}
	}
	return MessageContent{Parts: parts}
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	if c.Text != nil {
		return json.Marshal(*c.Text)
	}
	return []byte("null"), nil
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	*c = MessageContent{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	c.Text = new(string)
	return json.Unmarshal(data, c.Text)
}

// ContentPart is one element of an array-form content field. The image and
// audio reference fields carry the URL directly rather than a nested object.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	InputAudio string `json:"input_audio,omitempty"`
}

// Tool declares one callable function.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries a function declaration. Parameters must be omitted
// entirely for functions with no arguments; Mistral rejects an empty object
// schema.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is an issued function call. The type field is left empty on
// requests, which the API reads as "function".
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
	Index    *int         `json:"index,omitempty"`
}

// FunctionCall carries the called name and its JSON arguments serialized
// into a string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the REST response for the chat completions endpoint.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion candidate.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ResponseMessage is the assistant message inside a choice.
type ResponseMessage struct {
	Role      string         `json:"role"`
	Content   MessageContent `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
}

// Usage is the wire token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one server-sent event of a streaming completion.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// StreamChoice is one candidate inside a stream chunk.
type StreamChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// ChunkDelta is the incremental payload of a stream chunk.
type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a streamed tool call. Mistral sends each call whole in a
// single chunk rather than fragmenting the arguments.
type ToolCallDelta struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function *FunctionCallDelta `json:"function,omitempty"`
}

// FunctionCallDelta carries the streamed function name and arguments.
type FunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}
