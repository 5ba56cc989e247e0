package val

import (
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing the constrained value types the
// storage engine can hold. Only Str, Sym, I64, Bool, Addr, Vec, and Map
// implement it. There is NO float type - floats break determinism and are
// forbidden everywhere in the core.
type Value interface {
	value() // Sealed - only these types implement it
}

// Str represents a string value.
type Str string

func (Str) value() {}

// Sym represents a short symbolic identifier (storage key namespaces,
// event topics, role names). Encodes identically to Str; the distinct type
// keeps identifiers from mixing with user-supplied strings.
type Sym string

func (Sym) value() {}

// I64 represents an integer value. Always int64, never float64.
type I64 int64

func (I64) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Addr is an opaque principal identity. Immutable once created and
// comparable, so it is usable as a map key everywhere.
type Addr string

func (Addr) value() {}

// Vec represents an ordered sequence of values.
type Vec []Value

func (Vec) value() {}

// Map represents string-keyed structured data. Use SortedKeys() for
// deterministic iteration.
type Map map[string]Value

func (Map) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a DIFFERENT order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785. Must use unicode/utf16.Encode for correct
// surrogate handling.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// AsAddr extracts a principal from a value. Accepts Addr directly, or Str
// for values round-tripped through JSON (the wire format cannot tell the
// two apart).
func AsAddr(v Value) (Addr, bool) {
	switch a := v.(type) {
	case Addr:
		return a, true
	case Str:
		return Addr(a), true
	default:
		return "", false
	}
}

// AsI64 extracts an integer from a value.
func AsI64(v Value) (int64, bool) {
	if n, ok := v.(I64); ok {
		return int64(n), true
	}
	return 0, false
}

// AsSym extracts a symbol from a value. Accepts Sym or Str.
func AsSym(v Value) (Sym, bool) {
	switch s := v.(type) {
	case Sym:
		return s, true
	case Str:
		return Sym(s), true
	default:
		return "", false
	}
}

// AsBool extracts a boolean from a value.
func AsBool(v Value) (bool, bool) {
	if b, ok := v.(Bool); ok {
		return bool(b), true
	}
	return false, false
}

// UnmarshalValue decodes a JSON value into the appropriate Value type.
// Strings decode to Str, integers to I64 (via json.Number to avoid float64
// precision loss above 2^53). Floats and nulls are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Str(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case 'n':
		return nil, fmt.Errorf("null is forbidden")
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		vec := make(Vec, len(raw))
		for i, elem := range raw {
			v, err := UnmarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vec[i] = v
		}
		return vec, nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		m := make(Map, len(raw))
		for k, elem := range raw {
			v, err := UnmarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			m[k] = v
		}
		return m, nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return nil, err
		}
		n, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden: %s", num)
		}
		return I64(n), nil
	}
}

// UnmarshalMap decodes a JSON object into a Map. Empty input decodes to an
// empty Map rather than nil.
func UnmarshalMap(data []byte) (Map, error) {
	if len(data) == 0 || string(data) == "{}" {
		return Map{}, nil
	}
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Map)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return m, nil
}
