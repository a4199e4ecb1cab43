// Package modeladapter provides the embeddable base for provider adapters.
//
// It contains:
//   - [ModelAdapter] base struct with HTTP and WebSocket helpers, auth, custom
//     headers, and a token usage tracker
//   - [RateLimitedCompleter] for TPM/RPM throttling and 429 retry around any
//     [github.com/germanamz/lingua/pkg/providers/provider.Completer]
//
// Model configuration (name, temperature, max tokens) is inlined directly on
// the ModelAdapter struct. This package contains no provider-specific code; concrete
// adapters live in separate packages that import modeladapter.
package modeladapter
