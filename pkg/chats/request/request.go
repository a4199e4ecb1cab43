// Package request defines the canonical request and response envelopes
// exchanged with model providers.
package request

import (
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/usage"
)

// ModelRequest is the single, vendor-agnostic request shape. Converters map
// it to each provider's wire format.
type ModelRequest struct {
	// Messages form the conversation body, in order.
	Messages []message.Message `json:"messages"`
	// System optionally carries a system instruction. Providers with a
	// dedicated system slot receive it there; providers without one get it
	// demoted into the message list.
	System *message.Message `json:"system_message,omitempty"`
	// Tools lists the tool declarations offered to the model.
	Tools []tool.Tool `json:"tools,omitempty"`
}

// New builds a request from conversation messages.
func New(msgs ...message.Message) ModelRequest {
	return ModelRequest{Messages: msgs}
}

// SystemText returns the text of the system instruction, or "" when unset.
func (r ModelRequest) SystemText() string {
	if r.System == nil {
		return ""
	}
	return r.System.TextContent()
}

// Functions collects every function declaration offered in the request.
func (r ModelRequest) Functions() []tool.Function {
	return tool.FlattenFunctions(r.Tools)
}

// ModelResponse is the canonical result of a model call: the assistant
// message, the names identifying which model produced it, and the token
// usage the provider reported.
type ModelResponse struct {
	Message    message.Message `json:"message"`
	ModelName  string          `json:"model_name"`
	VendorName string          `json:"vendor_name"`
	Usage      usage.Usage     `json:"usage"`
}
