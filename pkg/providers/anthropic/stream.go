package anthropic

import (
	"fmt"

	"github.com/germanamz/lingua/pkg/chats/delta"
	"github.com/germanamz/lingua/pkg/usage"
)

// StreamEvent is one server-sent event of a streaming messages response,
// discriminated by Type.
type StreamEvent struct {
	Type         string        `json:"type"`
	Message      *ChatResponse `json:"message,omitempty"`
	Index        int           `json:"index,omitempty"`
	ContentBlock *Content      `json:"content_block,omitempty"`
	Delta        *StreamDelta  `json:"delta,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
	Error        *StreamError  `json:"error,omitempty"`
}

// StreamDelta is the delta payload of content_block_delta and message_delta
// events.
type StreamDelta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	PartialJSON  string `json:"partial_json,omitempty"`
	Thinking     string `json:"thinking,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// StreamError is the payload of an error event.
type StreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamEvents converts one messages API stream event into canonical events.
// The canonical MessageStop is emitted at message_delta, which carries the
// stop reason and output usage; the bare message_stop event and ping events
// yield nothing. Thinking deltas stream as text; signature deltas are
// dropped.
func StreamEvents(ev StreamEvent) ([]delta.Event, error) {
	switch ev.Type {
	case "message_start":
		return []delta.Event{delta.MessageStart{}}, nil

	case "content_block_start":
		events := []delta.Event{delta.ContentBlockStart{Index: ev.Index}}
		if cb := ev.ContentBlock; cb != nil {
			switch cb.Type {
			case "tool_use":
				events = append(events, delta.ContentBlockDelta{
					Index: ev.Index,
					Delta: delta.ToolCallDelta{ID: cb.ID, Name: cb.Name},
				})
			case "text":
				if cb.Text != "" {
					events = append(events, delta.ContentBlockDelta{
						Index: ev.Index,
						Delta: delta.TextDelta{Text: cb.Text},
					})
				}
			case "thinking":
				if cb.Thinking != "" {
					events = append(events, delta.ContentBlockDelta{
						Index: ev.Index,
						Delta: delta.TextDelta{Text: cb.Thinking},
					})
				}
			}
		}
		return events, nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []delta.Event{delta.ContentBlockDelta{Index: ev.Index, Delta: delta.TextDelta{Text: ev.Delta.Text}}}, nil
		case "input_json_delta":
			return []delta.Event{delta.ContentBlockDelta{Index: ev.Index, Delta: delta.ToolCallDelta{ArgsDelta: ev.Delta.PartialJSON}}}, nil
		case "thinking_delta":
			return []delta.Event{delta.ContentBlockDelta{Index: ev.Index, Delta: delta.TextDelta{Text: ev.Delta.Thinking}}}, nil
		}
		return nil, nil

	case "content_block_stop":
		return []delta.Event{delta.ContentBlockStop{Index: ev.Index}}, nil

	case "message_delta":
		stop := delta.MessageStop{}
		if ev.Delta != nil {
			stop.FinishReason = mapStopReason(ev.Delta.StopReason)
		}
		if ev.Usage != nil {
			u := usage.Usage{Requests: 1}
			u.AddInput(usage.Text, uint64(ev.Usage.InputTokens))
			u.AddOutput(usage.Text, uint64(ev.Usage.OutputTokens))
			stop.Usage = u
		}
		return []delta.Event{stop}, nil

	case "message_stop", "ping":
		return nil, nil

	case "error":
		if ev.Error != nil {
			return nil, fmt.Errorf("anthropic: stream error: %s: %s", ev.Error.Type, ev.Error.Message)
		}
		return nil, fmt.Errorf("anthropic: stream error")
	}

	return nil, nil
}

func mapStopReason(reason string) delta.FinishReason {
	switch reason {
	case "":
		return ""
	case "end_turn", "stop_sequence":
		return delta.Stop
	case "max_tokens":
		return delta.Length
	case "tool_use":
		return delta.ToolCalls
	}
	return delta.Other
}
