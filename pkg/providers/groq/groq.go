// Package groq implements provider.Completer for Groq's OpenAI-compatible
// chat completions API. Conversion is shared with the openai package; only
// the endpoint, auth, and provider attribution differ.
package groq

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/delta"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/openai"
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// DefaultBaseURL is the base URL for the Groq API.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

const completionsPath = "/chat/completions"

var _ provider.Completer = (*Adapter)(nil)

// Adapter sends chat completions to the Groq API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter with the given API key, model, and HTTP client.
// A nil client falls back to the default client.
func New(apiKey, model string, client *http.Client) *Adapter {
	a := &Adapter{
		ModelAdapter: modeladapter.New(DefaultBaseURL, modeladapter.Auth{Key: apiKey}, client),
	}
	a.Name = model
	a.MaxTokens = 4096
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Convert maps req onto the chat completions wire format with Groq named as
// the target provider.
func Convert(req request.ModelRequest, model string, policy convert.Policy) (openaifmt.ChatRequest, *convert.Plan, error) {
	return openai.ConvertAs(provider.Groq, req, model, policy)
}

// FromResponse converts a chat completions response into a canonical model
// response attributed to Groq.
func FromResponse(resp openaifmt.ChatResponse) (request.ModelResponse, error) {
	return openai.FromResponseAs(provider.Groq, resp)
}

// StreamEvents converts one Groq stream chunk into canonical events.
func StreamEvents(chunk openaifmt.StreamChunk) []delta.Event {
	return openai.StreamEvents(chunk)
}

// Complete sends a conversation to the Groq chat completions endpoint and
// returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, a.Name, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("groq: %w", err)
	}

	if a.MaxTokens > 0 {
		wire.MaxTokens = lo.ToPtr(a.MaxTokens)
	}
	if a.Temperature != 0 {
		wire.Temperature = lo.ToPtr(a.Temperature)
	}

	var resp openaifmt.ChatResponse
	if err := a.PostJSON(ctx, completionsPath, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("groq: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("groq: %w", err)
	}

	a.Usage.Add(out.Usage)

	return out, nil
}
