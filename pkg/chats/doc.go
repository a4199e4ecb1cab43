// Package chats provides a provider-agnostic data model for LLM chat
// interactions.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/lingua/pkg/chats/role]: conversation roles (system, user, assistant, tool)
//   - [github.com/germanamz/lingua/pkg/chats/content]: multi-modal content parts (text, blob, tool call/result, opaque)
//   - [github.com/germanamz/lingua/pkg/chats/message]: messages composed of a role, content parts, and extensions
//   - [github.com/germanamz/lingua/pkg/chats/request]: model request/response envelopes and finish reasons
//   - [github.com/germanamz/lingua/pkg/chats/delta]: incremental streaming events
//
// No provider or API code is included. chats is a foundation layer
// that provider converters build on.
package chats
