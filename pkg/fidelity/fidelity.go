// Package fidelity compares canonical values before and after a provider
// round trip and reports what changed. Comparison is structural; when two
// values differ the report carries a unified diff of their canonical JSON so
// relay tests and the CLI can show exactly which field moved.
package fidelity

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/chats/message"
	"github.com/germanamz/lingua/pkg/chats/request"
)

// Report is the outcome of one comparison.
type Report struct {
	// Equal reports whether the two values matched structurally.
	Equal bool
	// Diff is a unified diff of the canonical JSON forms, empty when Equal.
	Diff string
}

// String renders the report for terminal output.
func (r Report) String() string {
	if r.Equal {
		return "identical"
	}

	return r.Diff
}

// CompareParts compares two part sequences structurally and diffs their
// canonical JSON when they differ.
func CompareParts(original, roundtripped []content.Part) (Report, error) {
	if content.EqualParts(original, roundtripped) {
		return Report{Equal: true}, nil
	}

	a, err := content.MarshalParts(original)
	if err != nil {
		return Report{}, fmt.Errorf("fidelity: marshal original: %w", err)
	}

	b, err := content.MarshalParts(roundtripped)
	if err != nil {
		return Report{}, fmt.Errorf("fidelity: marshal roundtripped: %w", err)
	}

	return diffJSON(a, b)
}

// CompareMessages compares two messages structurally and diffs their
// canonical JSON when they differ.
func CompareMessages(original, roundtripped message.Message) (Report, error) {
	if original.Equal(roundtripped) {
		return Report{Equal: true}, nil
	}

	return diffJSON(original, roundtripped)
}

// CompareRequests compares two canonical requests message by message. Tool
// declaration presence must match; declarations themselves are compared by
// their JSON form.
func CompareRequests(original, roundtripped request.ModelRequest) (Report, error) {
	if requestsEqual(original, roundtripped) {
		return Report{Equal: true}, nil
	}

	return diffJSON(original, roundtripped)
}

func requestsEqual(a, b request.ModelRequest) bool {
	if len(a.Messages) != len(b.Messages) {
		return false
	}

	for i := range a.Messages {
		if !a.Messages[i].Equal(b.Messages[i]) {
			return false
		}
	}

	if (a.System == nil) != (b.System == nil) {
		return false
	}

	if a.System != nil && !a.System.Equal(*b.System) {
		return false
	}

	if (a.Tools == nil) != (b.Tools == nil) {
		return false
	}

	ta, err := json.Marshal(a.Tools)
	if err != nil {
		return false
	}

	tb, err := json.Marshal(b.Tools)
	if err != nil {
		return false
	}

	return string(ta) == string(tb)
}

func diffJSON(original, roundtripped any) (Report, error) {
	a, err := json.Marshal(original)
	if err != nil {
		return Report{}, fmt.Errorf("fidelity: marshal original: %w", err)
	}

	b, err := json.Marshal(roundtripped)
	if err != nil {
		return Report{}, fmt.Errorf("fidelity: marshal roundtripped: %w", err)
	}

	return diffReport(a, b)
}

func diffReport(a, b []byte) (Report, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indent(a)),
		B:        difflib.SplitLines(indent(b)),
		FromFile: "original",
		ToFile:   "roundtripped",
		Context:  3,
	})
	if err != nil {
		return Report{}, fmt.Errorf("fidelity: diff: %w", err)
	}

	return Report{Diff: diff}, nil
}

// indent pretty-prints JSON so the diff lands on individual fields instead of
// one long line. Invalid JSON comes back unchanged.
func indent(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(data)
	}

	return string(out) + "\n"
}
