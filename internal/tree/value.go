package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind identifies the type of data held by a Value.
type Kind int

const (
	// Absent marks a key that does not exist. It is the zero Kind.
	Absent Kind = iota
	Null
	Bool
	Int
	Float
	String
	Sequence
	Mapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is an immutable node of materialized settings data.
// The zero Value is Absent, so lookups of unknown keys can be chained freely.
type Value struct {
	kind   Kind
	scalar any
	items  []Value
	fields map[string]Value
}

// EmptyMapping returns a mapping Value without keys.
func EmptyMapping() Value {
	return Value{kind: Mapping, fields: map[string]Value{}}
}

// FromMap materializes a plain nested map.
func FromMap(m map[string]any) Value {
	out := Value{kind: Mapping, fields: make(map[string]Value, len(m))}
	for k, v := range m {
		out.fields[k] = FromAny(v)
	}
	return out
}

// FromAny materializes an arbitrary decoded value. Mapping keys that are not
// strings are formatted with fmt.Sprint.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{kind: Null}
	case Value:
		return x
	case bool:
		return Value{kind: Bool, scalar: x}
	case string:
		return Value{kind: String, scalar: x}
	case int:
		return Value{kind: Int, scalar: int64(x)}
	case int8:
		return Value{kind: Int, scalar: int64(x)}
	case int16:
		return Value{kind: Int, scalar: int64(x)}
	case int32:
		return Value{kind: Int, scalar: int64(x)}
	case int64:
		return Value{kind: Int, scalar: x}
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return fromUint(uint64(x))
	case uint16:
		return fromUint(uint64(x))
	case uint32:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Value{kind: Float, scalar: float64(x)}
	case float64:
		return Value{kind: Float, scalar: x}
	case time.Time:
		return Value{kind: String, scalar: x.Format(time.RFC3339Nano)}
	case map[string]any:
		return FromMap(x)
	case map[any]any:
		out := Value{kind: Mapping, fields: make(map[string]Value, len(x))}
		for k, v := range x {
			out.fields[fmt.Sprint(k)] = FromAny(v)
		}
		return out
	case []any:
		out := Value{kind: Sequence, items: make([]Value, len(x))}
		for i, item := range x {
			out.items[i] = FromAny(item)
		}
		return out
	default:
		return Value{kind: String, scalar: fmt.Sprint(x)}
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Value{kind: Float, scalar: float64(u)}
	}
	return Value{kind: Int, scalar: int64(u)}
}

// Kind reports the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value stands for a missing key.
func (v Value) IsAbsent() bool { return v.kind == Absent }

// IsNull reports whether the value is an explicit null.
func (v Value) IsNull() bool { return v.kind == Null }

// Get returns the child stored under key, or an Absent value when v is not a
// mapping or has no such key.
func (v Value) Get(key string) Value {
	if v.kind != Mapping {
		return Value{}
	}
	return v.fields[key]
}

// Index returns the i-th element of a sequence, or Absent when out of range.
func (v Value) Index(i int) Value {
	if v.kind != Sequence || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Len returns the number of keys of a mapping or elements of a sequence.
func (v Value) Len() int {
	switch v.kind {
	case Mapping:
		return len(v.fields)
	case Sequence:
		return len(v.items)
	default:
		return 0
	}
}

// Keys returns the sorted keys of a mapping.
func (v Value) Keys() []string {
	if v.kind != Mapping {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsString returns the string content of a String value.
func (v Value) AsString() (string, bool) {
	s, ok := v.scalar.(string)
	return s, ok && v.kind == String
}

// AsInt returns the value as an integer. Integral floats are accepted.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case Int:
		return v.scalar.(int64), true
	case Float:
		f := v.scalar.(float64)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

// AsFloat returns the value as a float64. Integers are accepted.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case Float:
		return v.scalar.(float64), true
	case Int:
		return float64(v.scalar.(int64)), true
	}
	return 0, false
}

// AsBool returns the content of a Bool value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.scalar.(bool), true
}

// Interface converts the value back into plain Go data: map[string]any,
// []any, string, int64, float64, bool or nil.
func (v Value) Interface() any {
	switch v.kind {
	case Mapping:
		m := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			m[k] = child.Interface()
		}
		return m
	case Sequence:
		s := make([]any, len(v.items))
		for i, child := range v.items {
			s[i] = child.Interface()
		}
		return s
	case Absent, Null:
		return nil
	default:
		return v.scalar
	}
}

// MarshalJSON implements json.Marshaler. Non-finite floats, which JSON
// cannot represent, are written as their YAML spellings ".inf", "-.inf" and
// ".nan".
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.jsonData())
}

func (v Value) jsonData() any {
	switch v.kind {
	case Mapping:
		m := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			m[k] = child.jsonData()
		}
		return m
	case Sequence:
		s := make([]any, len(v.items))
		for i, child := range v.items {
			s[i] = child.jsonData()
		}
		return s
	case Float:
		f := v.scalar.(float64)
		switch {
		case math.IsInf(f, 1):
			return ".inf"
		case math.IsInf(f, -1):
			return "-.inf"
		case math.IsNaN(f):
			return ".nan"
		}
		return f
	default:
		return v.Interface()
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// Decode copies the value into out, which is typically a pointer to a struct
// with yaml tags.
func (v Value) Decode(out any) error {
	data, err := yaml.Marshal(v.Interface())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}
