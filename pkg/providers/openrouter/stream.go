package openrouter

import (
	"strings"

	"github.com/samber/lo"

	"github.com/germanamz/lingua/pkg/chats/delta"
	"github.com/germanamz/lingua/pkg/usage"
)

// StreamEvents converts one OpenRouter stream chunk into canonical events.
// Reasoning deltas land in block 0 and answer text in block 1, keeping the
// two apart the same way FromResponse orders its parts; tool calls take
// blocks 2+index. A chunk carrying usage but no choices, as sent when stream
// usage reporting is enabled, yields a bare MessageStop with the usage
// attached.
func StreamEvents(chunk StreamChunk) []delta.Event {
	var events []delta.Event

	for _, choice := range chunk.Choices {
		if choice.Delta.Role != "" {
			events = append(events, delta.MessageStart{})
		}
		if choice.Delta.Reasoning != "" {
			events = append(events, delta.ContentBlockDelta{
				Index: 0,
				Delta: delta.TextDelta{Text: choice.Delta.Reasoning},
			})
		}
		if choice.Delta.Content != "" {
			events = append(events, delta.ContentBlockDelta{
				Index: 1,
				Delta: delta.TextDelta{Text: choice.Delta.Content},
			})
		}
		for _, tc := range choice.Delta.ToolCalls {
			events = append(events, delta.ContentBlockDelta{
				Index: 2 + lo.FromPtr(tc.Index),
				Delta: delta.ToolCallDelta{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					ArgsDelta: tc.Function.Arguments,
				},
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
	out := tokenUsage(u)
	out.Requests = 1
	return out
}

// mapFinishReason folds the gateway's normalized finish reasons and the
// native vendor spellings that leak through into canonical ones.
func mapFinishReason(reason string) delta.FinishReason {
	switch strings.ToLower(reason) {
	case "stop", "end_turn", "completed":
		return delta.Stop
	case "length", "limit", "max_tokens":
		return delta.Length
	case "tool_calls", "tool_use":
		return delta.ToolCalls
	case "content_filter", "safety":
		return delta.ContentFilter
	}
	return delta.Other
}
