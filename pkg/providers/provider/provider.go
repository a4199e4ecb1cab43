// Package provider defines the identity names and call interface shared by
// all provider packages.
package provider

import (
	"context"

	"github.com/germanamz/lingua/pkg/chats/request"
)

// Canonical provider names, used in capability tables, conversion errors,
// and Opaque part tagging.
const (
	OpenAI     = "openai"
	Anthropic  = "anthropic"
	Gemini     = "gemini"
	OpenRouter = "openrouter"
	Mistral    = "mistral"
	Groq       = "groq"
)

// Completer sends a canonical request to a model and returns the canonical
// response.
type Completer interface {
	Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error)

func (f CompleterFunc) Complete(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
	return f(ctx, req)
}
