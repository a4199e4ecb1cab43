// Package providers holds the per-vendor converter and adapter packages.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/lingua/pkg/providers/provider] — provider name constants and the Completer interface
//   - [github.com/germanamz/lingua/pkg/providers/openaifmt] — Chat Completions wire types shared by the OpenAI-format vendors
//   - [github.com/germanamz/lingua/pkg/providers/openai] — OpenAI converter and adapter, reused by sibling dialects through its As variants
//   - [github.com/germanamz/lingua/pkg/providers/anthropic] — Anthropic Messages API converter and adapter
//   - [github.com/germanamz/lingua/pkg/providers/gemini] — Gemini generateContent converter, adapter, and live session
//   - [github.com/germanamz/lingua/pkg/providers/openrouter] — OpenRouter gateway converter and adapter
//   - [github.com/germanamz/lingua/pkg/providers/mistral] — Mistral La Plateforme converter and adapter
//   - [github.com/germanamz/lingua/pkg/providers/groq] — Groq adapter riding the OpenAI format
//
// Each provider package exposes pure conversion functions (Convert,
// FromRequest, FromResponse) alongside a thin HTTP adapter; the conversion
// entry points never touch the network.
package providers
