package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which member of a Value is set.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindMap
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a decoded JSON claim value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
	a    []Value
}

func String(s string) Value        { return Value{kind: KindString, s: s} }
func Integer(i int64) Value        { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value        { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }
func Array(a []Value) Value        { return Value{kind: KindArray, a: a} }
func Null() Value                  { return Value{} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// FromAny converts the output of encoding/json (decoded with or without
// UseNumber) into a Value. Unsupported types become null.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Integer(i)
		}
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Float(f)
	case float64:
		if t == float64(int64(t)) {
			return Integer(int64(t))
		}
		return Float(t)
	case int:
		return Integer(int64(t))
	case int64:
		return Integer(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return Map(m)
	case []any:
		a := make([]Value, 0, len(t))
		for _, item := range t {
			a = append(a, FromAny(item))
		}
		return Array(a)
	case Value:
		return t
	}
	return Null()
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsInteger() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// AsFloat returns integers and floats as float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

func (v Value) AsArray() ([]Value, bool) {
	return v.a, v.kind == KindArray
}

// Strings returns the string members of an array value.
func (v Value) Strings() []string {
	if v.kind != KindArray {
		return nil
	}
	out := make([]string, 0, len(v.a))
	for _, item := range v.a {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Interface converts the Value back into plain Go values.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, item := range v.m {
			m[k] = item.Interface()
		}
		return m
	case KindArray:
		a := make([]any, 0, len(v.a))
		for _, item := range v.a {
			a = append(a, item.Interface())
		}
		return a
	}
	return nil
}

// Text renders scalars the way they appear in JSON, without quotes for strings.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			o, ok := other.m[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.a) != len(other.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(other.a[i]) {
				return false
			}
		}
		return true
	}
	return v.s == other.s && v.i == other.i && v.f == other.f && v.b == other.b
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
