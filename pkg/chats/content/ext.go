package content

import "encoding/json"

// Ext carries namespaced vendor annotations on a part or message. Keys have
// the form "<namespace>.<key>"; the namespace prevents collisions when
// converters for different providers annotate the same unit. Values are raw
// JSON so annotations survive round-trips byte-for-byte. A nil map is an
// empty bag.
type Ext map[string]json.RawMessage

// ExtKey joins a namespace and key into the canonical "<namespace>.<key>"
// form.
func ExtKey(namespace, key string) string {
	return namespace + "." + key
}

// Set stores a raw JSON value under namespace.key, allocating the map when
// needed, and returns the bag for chaining.
func (e Ext) Set(namespace, key string, value json.RawMessage) Ext {
	if e == nil {
		e = make(Ext, 1)
	}
	e[ExtKey(namespace, key)] = value
	return e
}

// SetString stores a JSON string value under namespace.key.
func (e Ext) SetString(namespace, key, value string) Ext {
	raw, _ := json.Marshal(value)
	return e.Set(namespace, key, raw)
}

// SetBool stores a JSON boolean value under namespace.key.
func (e Ext) SetBool(namespace, key string, value bool) Ext {
	if value {
		return e.Set(namespace, key, json.RawMessage("true"))
	}
	return e.Set(namespace, key, json.RawMessage("false"))
}

// Get returns the raw value stored under namespace.key.
func (e Ext) Get(namespace, key string) (json.RawMessage, bool) {
	v, ok := e[ExtKey(namespace, key)]
	return v, ok
}

// GetString returns the value under namespace.key when it is a JSON string.
func (e Ext) GetString(namespace, key string) (string, bool) {
	raw, ok := e[ExtKey(namespace, key)]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// GetBool returns the value under namespace.key when it is a JSON boolean.
func (e Ext) GetBool(namespace, key string) (bool, bool) {
	raw, ok := e[ExtKey(namespace, key)]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Clone returns an independent copy of the bag. Cloning nil returns nil.
func (e Ext) Clone() Ext {
	if e == nil {
		return nil
	}
	out := make(Ext, len(e))
	for k, v := range e {
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
