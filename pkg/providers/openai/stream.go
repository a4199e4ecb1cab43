package openai

import (
	"github.com/germanamz/lingua/pkg/chats/delta"
	"github.com/germanamz/lingua/pkg/providers/openaifmt"
	"github.com/germanamz/lingua/pkg/usage"
)

// StreamEvents converts one chat completions stream chunk into canonical
// events. Text deltas land in block 0 and tool calls in blocks 1+index, so a
// message that mixes both keeps distinct blocks. A chunk carrying usage but
// no choices, as sent when stream usage reporting is enabled, yields a bare
// MessageStop with the usage attached.
func StreamEvents(chunk openaifmt.StreamChunk) []delta.Event {
	var events []delta.Event

	for _, choice := range chunk.Choices {
		if choice.Delta.Role != "" {
			events = append(events, delta.MessageStart{})
		}
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, delta.ContentBlockDelta{
				Index: 0,
				Delta: delta.TextDelta{Text: *choice.Delta.Content},
			})
		}
		for _, tc := range choice.Delta.ToolCalls {
			d := delta.ToolCallDelta{ID: tc.ID}
			if tc.Function != nil {
				d.Name = tc.Function.Name
				d.ArgsDelta = tc.Function.Arguments
			}
			events = append(events, delta.ContentBlockDelta{Index: 1 + tc.Index, Delta: d})
		}
		if choice.FinishReason != nil {
			events = append(events, delta.MessageStop{
				Usage:        chunkUsage(chunk.Usage),
				FinishReason: mapFinishReason(*choice.FinishReason),
			})
		}
	}

	if len(chunk.Choices) == 0 && chunk.Usage != nil {
		events = append(events, delta.MessageStop{Usage: chunkUsage(chunk.Usage)})
	}

	return events
}

func chunkUsage(u *openaifmt.Usage) usage.Usage {
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
	case "length":
		return delta.Length
	case "tool_calls":
		return delta.ToolCalls
	case "content_filter":
		return delta.ContentFilter
	}
	return delta.Other
}
