// Package toolbox dispatches tool calls to pluggable providers. A Provider
// exposes function declarations and serves calls to them; a Box holds
// providers in registration order and routes each call to the first provider
// declaring the requested name. Lookup misses come back as error results
// rather than Go errors so they can travel back to the model like any other
// tool outcome.
package toolbox

import (
	"context"
	"fmt"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/tools/tool"
)

// Provider serves a set of tool functions.
type Provider interface {
	// Tools lists the function declarations this provider serves.
	Tools() []tool.Function

	// Call executes one tool call. Failures are reported as error results,
	// not returned as errors.
	Call(ctx context.Context, call content.ToolUse) content.ToolResult
}

// Box is an ordered collection of providers. When two providers declare the
// same function name, the one registered first wins.
type Box struct {
	providers []Provider
}

// Box routes like a provider, so boxes can nest inside other boxes.
var _ Provider = (*Box)(nil)

// New creates a Box over the given providers, in order.
func New(providers ...Provider) *Box {
	return &Box{providers: providers}
}

// Register appends providers to the box.
func (b *Box) Register(providers ...Provider) {
	b.providers = append(b.providers, providers...)
}

// Tools returns the declarations of every registered provider, flattened in
// registration order.
func (b *Box) Tools() []tool.Function {
	var fns []tool.Function
	for _, p := range b.providers {
		fns = append(fns, p.Tools()...)
	}
	return fns
}

// Call routes the call to the first provider declaring the function name.
// When no provider declares it, the result is an error result saying so.
func (b *Box) Call(ctx context.Context, call content.ToolUse) content.ToolResult {
	p, ok := b.find(call.Name)
	if !ok {
		return ErrorResult(call, fmt.Sprintf("tool not found: %s", call.Name))
	}
	return p.Call(ctx, call)
}

func (b *Box) find(name string) (Provider, bool) {
	for _, p := range b.providers {
		for _, fn := range p.Tools() {
			if fn.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

// ErrorResult builds a tool result carrying an error message for the given
// call, flagged with the toolbox.is_error extension.
func ErrorResult(call content.ToolUse, text string) content.ToolResult {
	return content.ToolResult{
		ID:    call.ID,
		Name:  call.Name,
		Parts: []content.Part{content.NewText(text)},
		Ext:   content.Ext{}.SetBool("toolbox", "is_error", true),
	}
}

// IsErrorResult reports whether a result carries the toolbox.is_error flag.
func IsErrorResult(r content.ToolResult) bool {
	v, ok := r.Ext.GetBool("toolbox", "is_error")
	return ok && v
}
