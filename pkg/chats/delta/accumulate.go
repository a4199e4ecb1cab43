package delta

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/role"
	"github.com/germanamz/lingua/pkg/usage"
)

type blockState struct {
	text     strings.Builder
	toolID   string
	toolName string
	toolArgs strings.Builder
	isTool   bool
}

// Accumulator folds stream events back into a complete assistant message.
// Push events in stream order, then call Message after MessageStop.
// The zero value is ready to use. Not safe for concurrent use.
type Accumulator struct {
	blocks map[int]*blockState
	usage  usage.Usage
	finish FinishReason
	done   bool
}

// Push applies one stream event.
func (a *Accumulator) Push(ev Event) error {
	if a.done {
		return fmt.Errorf("delta: event after message_stop")
	}
	switch v := ev.(type) {
	case MessageStart, ContentBlockStart, ContentBlockStop:
		return nil
	case ContentBlockDelta:
		return a.applyDelta(v)
	case MessageStop:
		a.usage = v.Usage
		a.finish = v.FinishReason
		a.done = true
		return nil
	case nil:
		return fmt.Errorf("delta: nil event")
	}
	return fmt.Errorf("delta: unknown event type %T", ev)
}

func (a *Accumulator) applyDelta(ev ContentBlockDelta) error {
	if a.blocks == nil {
		a.blocks = make(map[int]*blockState)
	}
	st := a.blocks[ev.Index]
	if st == nil {
		st = &blockState{}
		a.blocks[ev.Index] = st
	}
	switch d := ev.Delta.(type) {
	case TextDelta:
		if st.isTool {
			return fmt.Errorf("delta: text delta for tool call block %d", ev.Index)
		}
		st.text.WriteString(d.Text)
		return nil
	case ToolCallDelta:
		st.isTool = true
		if d.ID != "" {
			st.toolID = d.ID
		}
		if d.Name != "" {
			st.toolName = d.Name
		}
		st.toolArgs.WriteString(d.ArgsDelta)
		return nil
	case nil:
		return fmt.Errorf("delta: block %d has nil delta", ev.Index)
	}
	return fmt.Errorf("delta: unknown block delta type %T", ev.Delta)
}

// Done reports whether MessageStop has been seen.
func (a *Accumulator) Done() bool { return a.done }

// Usage returns the usage reported by MessageStop.
func (a *Accumulator) Usage() usage.Usage { return a.usage }

// FinishReason returns the finish reason reported by MessageStop.
func (a *Accumulator) FinishReason() FinishReason { return a.finish }

// Message assembles the accumulated blocks, in index order, into an
// assistant message. Tool-call argument fragments must concatenate into
// valid JSON; empty arguments become {}.
func (a *Accumulator) Message() (message.Message, error) {
	indices := make([]int, 0, len(a.blocks))
	for i := range a.blocks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var parts []content.Part
	for _, i := range indices {
		st := a.blocks[i]
		if !st.isTool {
			parts = append(parts, content.Text{Text: st.text.String()})
			continue
		}
		args := st.toolArgs.String()
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return message.Message{}, fmt.Errorf("delta: tool call %q block %d has invalid JSON arguments", st.toolName, i)
		}
		parts = append(parts, content.ToolUse{ID: st.toolID, Name: st.toolName, Args: json.RawMessage(args)})
	}
	return message.New(role.Assistant, parts...), nil
}
