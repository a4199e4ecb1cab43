package content

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Equal reports structural equality of two parts. It is total: every field
// counts, including Ext bags and the order of nested parts. Raw JSON fields
// compare by value, not by byte layout, so key order and whitespace do not
// matter.
func Equal(a, b Part) bool {
	switch av := a.(type) {
	case Text:
		bv, ok := b.(Text)
		return ok && av.Text == bv.Text && EqualExt(av.Ext, bv.Ext)

	case Blob:
		bv, ok := b.(Blob)
		if !ok {
			return false
		}
		return refEqual(av.Ref, bv.Ref) &&
			av.MIMEType == bv.MIMEType &&
			av.Name == bv.Name &&
			av.Description == bv.Description &&
			EqualExt(av.Ext, bv.Ext)

	case ToolUse:
		bv, ok := b.(ToolUse)
		return ok && av.ID == bv.ID && av.Name == bv.Name &&
			rawEqual(av.Args, bv.Args) && EqualExt(av.Ext, bv.Ext)

	case ToolResult:
		bv, ok := b.(ToolResult)
		return ok && av.ID == bv.ID && av.Name == bv.Name &&
			EqualParts(av.Parts, bv.Parts) && EqualExt(av.Ext, bv.Ext)

	case Opaque:
		bv, ok := b.(Opaque)
		return ok && av.Provider == bv.Provider && av.Kind == bv.Kind &&
			rawEqual(av.Payload, bv.Payload) && EqualExt(av.Ext, bv.Ext)

	case nil:
		return b == nil
	}
	return false
}

// EqualParts reports element-wise structural equality of two sequences.
func EqualParts(a, b []Part) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func refEqual(a, b DataRef) bool {
	switch av := a.(type) {
	case Base64Data:
		bv, ok := b.(Base64Data)
		return ok && av.Data == bv.Data
	case URIData:
		bv, ok := b.(URIData)
		return ok && av.URI == bv.URI
	case nil:
		return b == nil
	}
	return false
}

// EqualExt reports whether two extension bags hold the same keys with the
// same JSON values.
func EqualExt(a, b Ext) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !rawEqual(av, bv) {
			return false
		}
	}
	return true
}

// rawEqual compares raw JSON by decoded value, falling back to byte equality
// when either side does not parse.
func rawEqual(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(av, bv)
}
