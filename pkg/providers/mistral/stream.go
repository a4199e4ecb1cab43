package mistral

import (
	"github.com/germanamz/lingua/pkg/chats/delta"
	"github.com/germanamz/lingua/pkg/usage"
)

// StreamEvents converts one chat completions stream chunk into canonical
// events. Text deltas land in block 0 and tool calls in blocks 1+index.
// Mistral streams each tool call whole in a single chunk, so a call missing
// its id, name or arguments is dropped rather than emitted half-built.
func StreamEvents(chunk StreamChunk) []delta.Event {
	var events []delta.Event

	for _, choice := range chunk.Choices {
		if choice.Delta.Role != "" {
			events = append(events, delta.MessageStart{})
		}
		if choice.Delta.Content != "" {
			events = append(events, delta.ContentBlockDelta{
				Index: 0,
				Delta: delta.TextDelta{Text: choice.Delta.Content},
			})
		}
		for i, tc := range choice.Delta.ToolCalls {
			if tc.ID == "" || tc.Function == nil || tc.Function.Name == "" || tc.Function.Arguments == "" {
				continue
			}
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			events = append(events, delta.ContentBlockDelta{
				Index: 1 + idx,
				Delta: delta.ToolCallDelta{ID: tc.ID, Name: tc.Function.Name, ArgsDelta: tc.Function.Arguments},
			})
		}
		if choice.FinishReason != "" {
			events = append(events, delta.MessageStop{
				Usage:        chunkUsage(chunk.Usage),
				FinishReason: mapFinishReason(choice.FinishReason),
			})
		}
	}

	if len(chunk.Choices) == 0 && chunk.Usage != nil {
		events = append(events, delta.MessageStop{Usage: chunkUsage(chunk.Usage)})
	}

	return events
}

func chunkUsage(u *Usage) usage.Usage {
	if u == nil {
		return usage.Usage{}
	}
	out := usage.Usage{Requests: 1}
	out.AddInput(usage.Text, uint64(u.PromptTokens))
	out.AddOutput(usage.Text, uint64(u.CompletionTokens))
	return out
}

func mapFinishReason(reason string) delta.FinishReason {
	switch reason {
	case "stop":
		return delta.Stop
	case "length", "model_length":
		return delta.Length
	case "tool_calls":
		return delta.ToolCalls
	}
	return delta.Other
}
