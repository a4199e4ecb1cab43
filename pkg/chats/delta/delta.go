// Package delta defines the canonical events a streaming model response is
// broken into. Provider packages convert vendor stream chunks into these
// events so callers can consume any provider's stream the same way.
package delta

import "github.com/germanamz/lingua/pkg/usage"

// Event kind tags, stable across the JSON encoding.
const (
	KindMessageStart      = "message_start"
	KindContentBlockStart = "content_block_start"
	KindContentBlockDelta = "content_block_delta"
	KindContentBlockStop  = "content_block_stop"
	KindMessageStop       = "message_stop"
)

// Event is one step in a streaming response. The concrete types are
// MessageStart, ContentBlockStart, ContentBlockDelta, ContentBlockStop, and
// MessageStop.
type Event interface {
	EventKind() string
}

// FinishReason explains why the model stopped producing output.
type FinishReason string

const (
	Stop          FinishReason = "stop"
	Length        FinishReason = "length"
	ToolCalls     FinishReason = "tool_calls"
	ContentFilter FinishReason = "content_filter"
	Other         FinishReason = "other"
)

// MessageStart opens a streamed message. It is the first event in a stream.
type MessageStart struct{}

func (MessageStart) EventKind() string { return KindMessageStart }

// ContentBlockStart opens the content block at Index.
type ContentBlockStart struct {
	Index int `json:"index"`
}

func (ContentBlockStart) EventKind() string { return KindContentBlockStart }

// ContentBlockDelta carries an incremental update for the block at Index.
type ContentBlockDelta struct {
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

func (ContentBlockDelta) EventKind() string { return KindContentBlockDelta }

// ContentBlockStop closes the content block at Index.
type ContentBlockStop struct {
	Index int `json:"index"`
}

func (ContentBlockStop) EventKind() string { return KindContentBlockStop }

// MessageStop closes the stream, reporting usage and why the model stopped.
type MessageStop struct {
	Usage        usage.Usage  `json:"usage"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

func (MessageStop) EventKind() string { return KindMessageStop }

// BlockDelta is the payload of a ContentBlockDelta: either a TextDelta or a
// ToolCallDelta.
type BlockDelta interface {
	DeltaKind() string
}

// Block delta kind tags.
const (
	KindText     = "text"
	KindToolCall = "tool_call"
)

// TextDelta appends text to a text block.
type TextDelta struct {
	Text string `json:"text"`
}

func (TextDelta) DeltaKind() string { return KindText }

// ToolCallDelta updates a tool-call block. ID and Name arrive once per call;
// ArgsDelta fragments concatenate into the call's JSON arguments.
type ToolCallDelta struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ArgsDelta string `json:"args_delta,omitempty"`
}

func (ToolCallDelta) DeltaKind() string { return KindToolCall }
