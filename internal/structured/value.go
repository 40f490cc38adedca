// Package structured threads the string-redaction operation through
// recursive containers (trees, tables, documents) without touching their
// shape. Containers are modeled as a closed tagged variant, so a shape the
// traversal cannot handle is unrepresentable by construction.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrStructuralMismatch indicates input whose shape cannot be represented
// as a Value. It is raised at construction time; silently passing such
// content through would risk leaking unredacted data.
var ErrStructuralMismatch = errors.New("unrecognized structure shape")

// Kind discriminates the variants of Value.
type Kind int

const (
	// KindString is a redactable text leaf.
	KindString Kind = iota
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is a string-keyed map; keys are structural metadata and
	// are never redacted.
	KindMapping
	// KindScalar is an opaque non-text leaf (number, bool, null) passed
	// through unchanged.
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one node of a structured input: a text leaf, a sequence, a
// string-keyed mapping, or an opaque scalar.
type Value struct {
	kind    Kind
	str     string
	seq     []Value
	mapping map[string]Value
	scalar  interface{}
}

// String creates a text leaf.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Sequence creates an ordered list value.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, seq: items}
}

// Mapping creates a string-keyed map value.
func Mapping(m map[string]Value) Value {
	return Value{kind: KindMapping, mapping: m}
}

// Scalar creates an opaque leaf. The payload is carried by reference and
// never inspected or altered.
func Scalar(v interface{}) Value {
	return Value{kind: KindScalar, scalar: v}
}

// Kind reports which variant this value is.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the string leaf content; ok is false for other kinds.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Items returns the sequence elements; ok is false for other kinds.
func (v Value) Items() ([]Value, bool) {
	return v.seq, v.kind == KindSequence
}

// Map returns the mapping entries; ok is false for other kinds.
func (v Value) Map() (map[string]Value, bool) {
	return v.mapping, v.kind == KindMapping
}

// ScalarValue returns the opaque payload; ok is false for other kinds.
func (v Value) ScalarValue() (interface{}, bool) {
	return v.scalar, v.kind == KindScalar
}

// FromInterface converts dynamically-typed data (as produced by JSON or
// CSV decoding) into a Value. Strings become text leaves; slices and
// string-keyed maps recurse; numbers, booleans, and nil become scalars.
// Anything else is a structural mismatch, reported rather than passed
// through.
func FromInterface(data interface{}) (Value, error) {
	switch d := data.(type) {
	case nil:
		return Scalar(nil), nil
	case string:
		return String(d), nil
	case bool, int, int32, int64, float32, float64, json.Number:
		return Scalar(d), nil
	case []interface{}:
		items := make([]Value, len(d))
		for i, elem := range d {
			v, err := FromInterface(elem)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Sequence(items...), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(d))
		for k, elem := range d {
			v, err := FromInterface(elem)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Mapping(m), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrStructuralMismatch, data)
	}
}

// ToInterface converts a Value back into dynamically-typed data suitable
// for JSON encoding.
func ToInterface(v Value) interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindSequence:
		out := make([]interface{}, len(v.seq))
		for i, elem := range v.seq {
			out[i] = ToInterface(elem)
		}
		return out
	case KindMapping:
		out := make(map[string]interface{}, len(v.mapping))
		for k, elem := range v.mapping {
			out[k] = ToInterface(elem)
		}
		return out
	default:
		return v.scalar
	}
}
