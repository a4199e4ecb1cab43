// Package openai converts canonical requests to and from the OpenAI Chat
// Completions wire format and provides a Completer for the API. Providers
// that speak the same dialect reuse the conversion entry points through the
// As variants.
package openai

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/convert"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

const completionsPath = "/v1/chat/completions"

var _ provider.Completer = (*Adapter)(nil)

// Adapter implements provider.Completer for the OpenAI Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the OpenAI API.
// The baseURL should be "https://api.openai.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.MaxTokens = 4096
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Complete sends a conversation to the OpenAI Chat Completions API and
// returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	wire, _, err := Convert(req, a.Name, convert.Strict)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("openai: %w", err)
	}

	if a.MaxTokens > 0 {
		wire.MaxTokens = lo.ToPtr(a.MaxTokens)
	}
	if a.Temperature != 0 {
		wire.Temperature = lo.ToPtr(a.Temperature)
	}

	var resp openaifmt.ChatResponse
	if err := a.PostJSON(ctx, completionsPath, wire, &resp); err != nil {
		return request.ModelResponse{}, fmt.Errorf("openai: %w", err)
	}

	out, err := FromResponse(resp)
	if err != nil {
		return request.ModelResponse{}, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(out.Usage)

	return out, nil
}
