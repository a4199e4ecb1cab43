package gemini

import (
	"encoding/json"

	"github.com/germanamz/lingua/pkg/chats/delta"
)

// StreamDecoder turns streamGenerateContent chunks into canonical events.
// Text accumulates on block 0; each function call, which Gemini delivers
// whole in a single chunk, gets its own block so successive calls never
// merge. One decoder serves one response stream.
type StreamDecoder struct {
	started    bool
	toolBlocks int
}

// Events converts one response chunk. A chunk carrying usage metadata ends
// the stream with a MessageStop whose finish reason defaults to Stop, which
// is how Gemini reports an unremarkable end of generation.
func (d *StreamDecoder) Events(chunk GenerateResponse) []delta.Event {
	var events []delta.Event

	if !d.started {
		d.started = true
		events = append(events, delta.MessageStart{})
	}

	if len(chunk.Candidates) > 0 {
		for _, p := range chunk.Candidates[0].Content.Parts {
			switch {
			case p.FunctionCall != nil:
				events = append(events, d.toolCallEvent(p.FunctionCall.ID, p.FunctionCall.Name, p.FunctionCall.Args))

			case p.ExecutableCode != nil:
				args, err := json.Marshal(map[string]string{
					"language": p.ExecutableCode.Language,
					"code":     p.ExecutableCode.Code,
				})
				if err != nil {
					continue
				}
				events = append(events, d.toolCallEvent("", codeInterpreterName, args))

			case p.Text != "":
				events = append(events, delta.ContentBlockDelta{
					Index: 0,
					Delta: delta.TextDelta{Text: p.Text},
				})
			}
		}
	}

	if chunk.UsageMetadata != nil {
		finish := delta.Stop
		if len(chunk.Candidates) > 0 {
			finish = mapFinishReason(chunk.Candidates[0].FinishReason)
		}
		events = append(events, delta.MessageStop{
			Usage:        usageFromMetadata(chunk.UsageMetadata),
			FinishReason: finish,
		})
	}

	return events
}

func (d *StreamDecoder) toolCallEvent(id, name string, args json.RawMessage) delta.Event {
	d.toolBlocks++
	if id == "" {
		id = generateCallID(name)
	}
	return delta.ContentBlockDelta{
		Index: d.toolBlocks,
		Delta: delta.ToolCallDelta{ID: id, Name: name, ArgsDelta: string(args)},
	}
}

func mapFinishReason(reason string) delta.FinishReason {
	switch reason {
	case "", "STOP":
		return delta.Stop
	case "MAX_TOKENS":
		return delta.Length
	case "SAFETY", "RECITATION":
		return delta.ContentFilter
	}
	return delta.Other
}
