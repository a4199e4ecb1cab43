package usage

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/tools/tool"
)

// perMessageOverhead is the estimated token overhead for each message (role,
// structure delimiters, etc.).
const perMessageOverhead = 4

// perFunctionOverhead is the estimated token overhead for each function
// declaration (JSON wrapping, function object structure, etc.).
const perFunctionOverhead = 10

// Estimator estimates token counts for messages and tool declarations before
// a request is sent. It tokenizes text with the cl100k_base encoding and
// falls back to a 1-token-per-4-characters heuristic when the encoding is
// unavailable. Use NewEstimator; the zero value uses only the heuristic.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator builds an estimator backed by the cl100k_base encoding.
func NewEstimator() *Estimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// Count returns the estimated token count of a text string.
func (e *Estimator) Count(text string) int {
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4 // round up
}

// EstimateMessage estimates the token cost of a single message. It accounts
// for text parts, tool calls, nested tool-result content, blob metadata, and
// per-message structural overhead. Blob bytes themselves are not counted;
// providers price those per item, not per token.
func (e *Estimator) EstimateMessage(m message.Message) int {
	return perMessageOverhead + e.estimateParts(m.Parts)
}

// EstimateMessages estimates the total token cost of a conversation.
func (e *Estimator) EstimateMessages(msgs []message.Message) int {
	tokens := 0
	for _, m := range msgs {
		tokens += e.EstimateMessage(m)
	}
	return tokens
}

// EstimateFunctions estimates the token cost of function declarations. For
// each function it sums the name, description, and serialized parameter
// schema, plus a per-function structural overhead.
func (e *Estimator) EstimateFunctions(fns []tool.Function) int {
	tokens := 0
	for _, fn := range fns {
		tokens += e.Count(fn.Name) + e.Count(fn.Description) + e.Count(string(fn.Parameters))
		tokens += perFunctionOverhead
	}
	return tokens
}

func (e *Estimator) estimateParts(parts []content.Part) int {
	tokens := 0
	for _, p := range parts {
		switch v := p.(type) {
		case content.Text:
			tokens += e.Count(v.Text)
		case content.Blob:
			tokens += e.Count(v.Name) + e.Count(v.Description)
		case content.ToolUse:
			tokens += e.Count(v.ID) + e.Count(v.Name) + e.Count(string(v.Args))
		case content.ToolResult:
			tokens += e.Count(v.ID) + e.Count(v.Name) + e.estimateParts(v.Parts)
		case content.Opaque:
			tokens += e.Count(string(v.Payload))
		}
	}
	return tokens
}
