package delta

import (
	"encoding/json"
	"fmt"

	"github.com/germanamz/lingua/pkg/usage"
)

type eventJSON struct {
	Type         string          `json:"type"`
	Index        *int            `json:"index,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`
	Usage        *usage.Usage    `json:"usage,omitempty"`
	FinishReason FinishReason    `json:"finish_reason,omitempty"`
}

type blockDeltaJSON struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ArgsDelta string `json:"args_delta,omitempty"`
}

// MarshalEvent encodes an event in its tagged wire form.
func MarshalEvent(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case MessageStart:
		return json.Marshal(eventJSON{Type: KindMessageStart})
	case ContentBlockStart:
		return json.Marshal(eventJSON{Type: KindContentBlockStart, Index: &v.Index})
	case ContentBlockDelta:
		raw, err := marshalBlockDelta(v.Delta)
		if err != nil {
			return nil, err
		}
		return json.Marshal(eventJSON{Type: KindContentBlockDelta, Index: &v.Index, Delta: raw})
	case ContentBlockStop:
		return json.Marshal(eventJSON{Type: KindContentBlockStop, Index: &v.Index})
	case MessageStop:
		return json.Marshal(eventJSON{Type: KindMessageStop, Usage: &v.Usage, FinishReason: v.FinishReason})
	case nil:
		return nil, fmt.Errorf("delta: nil event")
	}
	return nil, fmt.Errorf("delta: unknown event type %T", ev)
}

func marshalBlockDelta(d BlockDelta) (json.RawMessage, error) {
	switch v := d.(type) {
	case TextDelta:
		return json.Marshal(blockDeltaJSON{Type: KindText, Text: v.Text})
	case ToolCallDelta:
		return json.Marshal(blockDeltaJSON{Type: KindToolCall, ID: v.ID, Name: v.Name, ArgsDelta: v.ArgsDelta})
	case nil:
		return nil, fmt.Errorf("delta: nil block delta")
	}
	return nil, fmt.Errorf("delta: unknown block delta type %T", d)
}

// UnmarshalEvent decodes a tagged event, rejecting unknown tags.
func UnmarshalEvent(data []byte) (Event, error) {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return nil, err
	}
	switch ej.Type {
	case KindMessageStart:
		return MessageStart{}, nil
	case KindContentBlockStart:
		if ej.Index == nil {
			return nil, fmt.Errorf("delta: content_block_start missing index")
		}
		return ContentBlockStart{Index: *ej.Index}, nil
	case KindContentBlockDelta:
		if ej.Index == nil {
			return nil, fmt.Errorf("delta: content_block_delta missing index")
		}
		bd, err := unmarshalBlockDelta(ej.Delta)
		if err != nil {
			return nil, err
		}
		return ContentBlockDelta{Index: *ej.Index, Delta: bd}, nil
	case KindContentBlockStop:
		if ej.Index == nil {
			return nil, fmt.Errorf("delta: content_block_stop missing index")
		}
		return ContentBlockStop{Index: *ej.Index}, nil
	case KindMessageStop:
		ev := MessageStop{FinishReason: ej.FinishReason}
		if ej.Usage != nil {
			ev.Usage = *ej.Usage
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("delta: event missing type tag")
	}
	return nil, fmt.Errorf("delta: unknown event type %q", ej.Type)
}

func unmarshalBlockDelta(data json.RawMessage) (BlockDelta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("delta: content_block_delta missing delta")
	}
	var bj blockDeltaJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return nil, err
	}
	switch bj.Type {
	case KindText:
		return TextDelta{Text: bj.Text}, nil
	case KindToolCall:
		return ToolCallDelta{ID: bj.ID, Name: bj.Name, ArgsDelta: bj.ArgsDelta}, nil
	case "":
		return nil, fmt.Errorf("delta: block delta missing type tag")
	}
	return nil, fmt.Errorf("delta: unknown block delta type %q", bj.Type)
}
