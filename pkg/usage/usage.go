// Package usage tracks token consumption across model calls, broken down by
// content modality.
package usage

import "encoding/json"

// Modality classifies content for token counting. Providers report tokens
// for text, images, video, audio, and documents separately; any other string
// is carried through as its own modality.
type Modality string

const (
	Text     Modality = "text"
	Image    Modality = "image"
	Video    Modality = "video"
	Audio    Modality = "audio"
	Document Modality = "document"
)

// Usage records the token consumption of one or more model calls. Token
// counts are kept per modality for the input, output, cache, and tool
// categories. The zero value is empty and ready to use.
//
// Merging is additive and pure: Add returns a new value and never mutates
// either operand, so usage from concurrent requests can be reduced in any
// order. The one asymmetry is Details, which merges right-biased on key
// collision.
type Usage struct {
	Requests uint64 `json:"requests"`

	InputTokensByModality  map[Modality]uint64 `json:"input_tokens_by_modality,omitempty"`
	OutputTokensByModality map[Modality]uint64 `json:"output_tokens_by_modality,omitempty"`
	CacheTokensByModality  map[Modality]uint64 `json:"cache_tokens_by_modality,omitempty"`
	ToolTokensByModality   map[Modality]uint64 `json:"tool_tokens_by_modality,omitempty"`

	CacheReadTokens     *uint64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens *uint64 `json:"cache_creation_tokens,omitempty"`
	ThoughtsTokens      *uint64 `json:"thoughts_tokens,omitempty"`

	Details map[string]json.RawMessage `json:"details,omitempty"`
}

// AddInput records input tokens for a modality.
func (u *Usage) AddInput(m Modality, tokens uint64) {
	u.InputTokensByModality = bump(u.InputTokensByModality, m, tokens)
}

// AddOutput records output tokens for a modality.
func (u *Usage) AddOutput(m Modality, tokens uint64) {
	u.OutputTokensByModality = bump(u.OutputTokensByModality, m, tokens)
}

// AddCache records cache tokens for a modality.
func (u *Usage) AddCache(m Modality, tokens uint64) {
	u.CacheTokensByModality = bump(u.CacheTokensByModality, m, tokens)
}

// AddTool records tool tokens for a modality.
func (u *Usage) AddTool(m Modality, tokens uint64) {
	u.ToolTokensByModality = bump(u.ToolTokensByModality, m, tokens)
}

// InputTokens sums input tokens across all modalities.
func (u Usage) InputTokens() uint64 { return sumMap(u.InputTokensByModality) }

// OutputTokens sums output tokens across all modalities.
func (u Usage) OutputTokens() uint64 { return sumMap(u.OutputTokensByModality) }

// CacheTokens sums cache tokens across all modalities.
func (u Usage) CacheTokens() uint64 { return sumMap(u.CacheTokensByModality) }

// ToolTokens sums tool tokens across all modalities.
func (u Usage) ToolTokens() uint64 { return sumMap(u.ToolTokensByModality) }

// TotalTokens is input + output + thoughts.
func (u Usage) TotalTokens() uint64 {
	return u.InputTokens() + u.OutputTokens() + deref(u.ThoughtsTokens)
}

// EffectiveInputTokens is input minus cache-creation cost, saturating at 0.
// Cache creation is billed separately, so it is excluded from the effective
// input cost.
func (u Usage) EffectiveInputTokens() uint64 {
	in := u.InputTokens()
	cc := deref(u.CacheCreationTokens)
	if cc > in {
		return 0
	}
	return in - cc
}

// TotalCacheTokens is cache-read + cache-creation.
func (u Usage) TotalCacheTokens() uint64 {
	return deref(u.CacheReadTokens) + deref(u.CacheCreationTokens)
}

// Add merges two usage values: request counts and per-modality token counts
// sum, optional scalars sum when both are set, and Details unions with the
// right-hand side winning on key collision. Neither operand is mutated.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		Requests:               u.Requests + other.Requests,
		InputTokensByModality:  mergeMaps(u.InputTokensByModality, other.InputTokensByModality),
		OutputTokensByModality: mergeMaps(u.OutputTokensByModality, other.OutputTokensByModality),
		CacheTokensByModality:  mergeMaps(u.CacheTokensByModality, other.CacheTokensByModality),
		ToolTokensByModality:   mergeMaps(u.ToolTokensByModality, other.ToolTokensByModality),
		CacheReadTokens:        addOptional(u.CacheReadTokens, other.CacheReadTokens),
		CacheCreationTokens:    addOptional(u.CacheCreationTokens, other.CacheCreationTokens),
		ThoughtsTokens:         addOptional(u.ThoughtsTokens, other.ThoughtsTokens),
		Details:                mergeDetails(u.Details, other.Details),
	}
}

func bump(m map[Modality]uint64, key Modality, tokens uint64) map[Modality]uint64 {
	if m == nil {
		m = make(map[Modality]uint64)
	}
	m[key] += tokens
	return m
}

func sumMap(m map[Modality]uint64) uint64 {
	var total uint64
	for _, v := range m {
		total += v
	}
	return total
}

func mergeMaps(a, b map[Modality]uint64) map[Modality]uint64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[Modality]uint64, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func addOptional(a, b *uint64) *uint64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	default:
		v := *a + *b
		return &v
	}
}

func mergeDetails(a, b map[string]json.RawMessage) map[string]json.RawMessage {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func deref(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
