// Package agent runs the tool-calling loop: send the conversation to a
// model, execute any tool calls it issues through a toolbox, feed the
// results back, and repeat until the model produces a final answer.
package agent

import (
	"context"
	"errors"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/providers/provider"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/tools/toolbox"
	"github.com/germanamz/lingua/pkg/usage"
)

// ErrMaxIterations is returned when the loop exceeds MaxIterations without
// the model producing a final answer.
var ErrMaxIterations = errors.New("agent: max iterations reached")

// Options configures an Agent.
type Options struct {
	MaxIterations int          // Loop limit (0 = unlimited).
	Middleware    []Middleware // Applied around Run().
}

// Agent holds a conversation with one model and routes its tool calls
// through a toolbox. It is not safe for concurrent use; run one conversation
// per Agent.
type Agent struct {
	name      string
	system    string
	completer provider.Completer
	box       *toolbox.Box
	messages  []message.Message
	usage     usage.Usage
	options   Options
}

// New creates an Agent. The system instruction may be empty; box may be nil
// for a conversation without tools.
func New(name, system string, completer provider.Completer, box *toolbox.Box, opts Options) *Agent {
	return &Agent{
		name:      name,
		system:    system,
		completer: completer,
		box:       box,
		options:   opts,
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Messages returns the conversation so far, in order.
func (a *Agent) Messages() []message.Message { return a.messages }

// Append adds messages to the conversation. Call this with the user's turn
// before Run.
func (a *Agent) Append(msgs ...message.Message) {
	a.messages = append(a.messages, msgs...)
}

// Usage returns the accumulated token usage across every completion the
// agent has made.
func (a *Agent) Usage() usage.Usage { return a.usage }

// Run executes the tool-calling loop with middleware applied and returns the
// model's final message.
func (a *Agent) Run(ctx context.Context) (message.Message, error) {
	var runner Runner = RunnerFunc(a.run)

	// Apply middleware in reverse order so the first middleware is outermost.
	for i := len(a.options.Middleware) - 1; i >= 0; i-- {
		runner = a.options.Middleware[i](runner)
	}

	return runner.Run(ctx)
}

func (a *Agent) run(ctx context.Context) (message.Message, error) {
	req := request.ModelRequest{Tools: a.tools()}

	if a.system != "" {
		sys := message.NewText(role.System, a.system)
		req.System = &sys
	}

	for i := 0; a.options.MaxIterations == 0 || i < a.options.MaxIterations; i++ {
		req.Messages = a.messages

		resp, err := a.completer.Complete(ctx, req)
		if err != nil {
			return message.Message{}, err
		}

		a.usage = a.usage.Add(resp.Usage)
		a.messages = append(a.messages, resp.Message)

		calls := resp.Message.ToolUses()
		if len(calls) == 0 {
			return resp.Message, nil
		}

		parts := make([]content.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, a.callTool(ctx, call))
		}

		a.messages = append(a.messages, message.New(role.Tool, parts...))
	}

	return message.Message{}, ErrMaxIterations
}

func (a *Agent) callTool(ctx context.Context, call content.ToolUse) content.ToolResult {
	if a.box == nil {
		return toolbox.ErrorResult(call, "no tools available")
	}

	return a.box.Call(ctx, call)
}

func (a *Agent) tools() []tool.Tool {
	if a.box == nil {
		return nil
	}

	fns := a.box.Tools()
	if len(fns) == 0 {
		return nil
	}

	return []tool.Tool{tool.NewFunctions(fns...)}
}
