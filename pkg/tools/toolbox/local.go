package toolbox

import (
	"context"
	"encoding/json"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/tools/tool"
)

// Handler executes a tool with the given JSON arguments and returns a text
// result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// LocalTool is one locally served tool: a function declaration plus the
// handler that runs it.
type LocalTool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Handler     Handler
}

// Local serves tool calls with in-process Go functions.
type Local struct {
	tools []LocalTool
}

var _ Provider = (*Local)(nil)

// NewLocal creates a Local provider over the given tools.
func NewLocal(tools ...LocalTool) *Local {
	l := &Local{}
	l.Register(tools...)
	return l
}

// Register adds tools to the provider. A tool with an already registered
// name replaces the earlier one in place.
func (l *Local) Register(tools ...LocalTool) {
	for _, t := range tools {
		if i, ok := l.index(t.Name); ok {
			l.tools[i] = t
			continue
		}
		l.tools = append(l.tools, t)
	}
}

// Tools returns the declarations of all registered tools in registration
// order.
func (l *Local) Tools() []tool.Function {
	fns := make([]tool.Function, len(l.tools))
	for i, t := range l.tools {
		fns[i] = tool.Function{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return fns
}

// Call runs the named tool's handler. Handler errors and unknown names come
// back as error results.
func (l *Local) Call(ctx context.Context, call content.ToolUse) content.ToolResult {
	i, ok := l.index(call.Name)
	if !ok {
		return ErrorResult(call, "tool not found: "+call.Name)
	}

	text, err := l.tools[i].Handler(ctx, call.Args)
	if err != nil {
		return ErrorResult(call, err.Error())
	}

	return content.ToolResult{
		ID:    call.ID,
		Name:  call.Name,
		Parts: []content.Part{content.NewText(text)},
	}
}

func (l *Local) index(name string) (int, bool) {
	for i, t := range l.tools {
		if t.Name == name {
			return i, true
		}
	}
	return 0, false
}
