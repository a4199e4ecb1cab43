// Package openrouter converts canonical content to and from the OpenRouter
// chat completions dialect and provides a Completer over it. OpenRouter
// fronts many vendors behind one OpenAI-shaped API with extensions: message
// content is an array of typed parts, images travel as data URLs, and
// reasoning arrives in dedicated response fields. Reasoning text relayed
// from another vendor keeps its text; vendor signing metadata does not
// survive the trip.
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// DefaultBaseURL is the public OpenRouter endpoint.
const DefaultBaseURL = "https://openrouter.ai/api"

const completionsPath = "/v1/chat/completions"

var _ provider.Completer = (*Adapter)(nil)

// Adapter implements provider.Completer for the OpenRouter API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for OpenRouter. The model name uses OpenRouter's
// vendor-prefixed form, e.g. "anthropic/claude-3.5-sonnet".
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.MaxTokens = 4096
	a.HeaderParser = modeladapter.ParseOpenRouterRateLimitHeaders

	return a
}

// Complete sends a conversation through OpenRouter and returns the
// assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, a.Name, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("openrouter: %w", err)
	}

	if a.MaxTokens > 0 {
		wire.MaxTokens = a.MaxTokens
	}
	if a.Temperature != 0 {
		wire.Temperature = lo.ToPtr(a.Temperature)
	}

	var resp ChatResponse
	if err := a.PostJSON(ctx, completionsPath, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("openrouter: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("openrouter: %w", err)
	}

	a.Usage.Add(out.Usage)

	return out, nil
}

// --- request types ---

// ChatRequest is the body posted to the completions endpoint. Tools reuse
// the shared chat completions declaration shape.
type ChatRequest struct {
	Model             string               `json:"model"`
	Messages          []Message            `json:"messages"`
	Temperature       *float64             `json:"temperature,omitempty"`
	TopP              *float64             `json:"top_p,omitempty"`
	TopK              *int                 `json:"top_k,omitempty"`
	MaxTokens         int                  `json:"max_tokens,omitempty"`
	Stop              []string             `json:"stop,omitempty"`
	Stream            *bool                `json:"stream,omitempty"`
	Seed              *int                 `json:"seed,omitempty"`
	RepetitionPenalty *float64             `json:"repetition_penalty,omitempty"`
	Tools             []openaifmt.Tool     `json:"tools,omitempty"`
	ToolChoice        json.RawMessage      `json:"tool_choice,omitempty"`
	Models            []string             `json:"models,omitempty"`
	Route             string               `json:"route,omitempty"`
	Transforms        []string             `json:"transforms,omitempty"`
	Provider          *ProviderPreferences `json:"provider,omitempty"`
	IncludeReasoning  *bool                `json:"include_reasoning,omitempty"`
	Reasoning         *ReasoningConfig     `json:"reasoning,omitempty"`
}

// ProviderPreferences steers OpenRouter's routing between upstream vendors.
type ProviderPreferences struct {
	Order             []string `json:"order,omitempty"`
	Only              []string `json:"only,omitempty"`
	Ignore            []string `json:"ignore,omitempty"`
	AllowFallbacks    *bool    `json:"allow_fallbacks,omitempty"`
	RequireParameters *bool    `json:"require_parameters,omitempty"`
	DataCollection    string   `json:"data_collection,omitempty"`
	Sort              string   `json:"sort,omitempty"`
}

// ReasoningConfig tunes reasoning token generation for models that support
// it.
type ReasoningConfig struct {
	Effort    string `json:"effort,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Exclude   *bool  `json:"exclude,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

// Message is one wire message. System and tool messages carry string
// content; user and assistant messages carry content part arrays.
type Message struct {
	Role       string         `json:"role"`
	Content    MessageContent `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
}

// MessageContent is the content field: a plain string or an array of typed
// parts, depending on role and routed model.
type MessageContent struct {
	Text  *string
	Parts []ContentPart
}

// TextContent wraps a plain string content value.
func TextContent(s string) MessageContent {
	return MessageContent{Text: &s}
}

// PartsContent wraps an array-of-parts content value.
func PartsContent(parts ...ContentPart) MessageContent {
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

// ContentPart is one element of an array-form content field.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image by URL; inline images use data URLs.
type ImageURL struct {
	URL string `json:"url"`
}

// ToolCall is an assistant-issued function invocation. Index is set in
// stream chunks to correlate argument fragments.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and JSON-encoded arguments string.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// --- response types ---

// ChatResponse is the non-streaming completion body. Provider names the
// upstream vendor OpenRouter routed to.
type ChatResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object,omitempty"`
	Created           int64    `json:"created,omitempty"`
	Model             string   `json:"model,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             *Usage   `json:"usage,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index              int             `json:"index"`
	Message            ResponseMessage `json:"message"`
	FinishReason       string          `json:"finish_reason,omitempty"`
	NativeFinishReason string          `json:"native_finish_reason,omitempty"`
}

// ResponseMessage is the assistant message inside a choice. Some routed
// models leave content empty and deliver text through reasoning or
// reasoning_details instead.
type ResponseMessage struct {
	Role             string            `json:"role,omitempty"`
	Content          string            `json:"content,omitempty"`
	Refusal          string            `json:"refusal,omitempty"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`
}

// ReasoningDetail is one entry of a reasoning_details array. Which fields
// are set depends on the routed model; Data holds encrypted reasoning.
type ReasoningDetail struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
	Data    string `json:"data,omitempty"`
	ID      string `json:"id,omitempty"`
	Format  string `json:"format,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// PromptTokensDetails breaks down prompt tokens.
type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// CompletionTokensDetails breaks down completion tokens.
type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// --- streaming types ---

// StreamChunk is one server-sent event payload of a streaming completion.
type StreamChunk struct {
	ID       string         `json:"id,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Model    string         `json:"model,omitempty"`
	Object   string         `json:"object,omitempty"`
	Created  int64          `json:"created,omitempty"`
	Choices  []StreamChoice `json:"choices"`
	Usage    *Usage         `json:"usage,omitempty"`
}

// StreamChoice pairs a delta with its choice index.
type StreamChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// ChunkDelta is the incremental message fragment inside a stream chunk.
type ChunkDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
