// Package value implements the untyped JSON-like value tree shared by every
// document, predicate, and mutator in the portable statement language.
package value

import (
	"fmt"
	"math"
	"sort"
)

// Kind tags the concrete shape a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the recursive union described in spec.md §3: null | bool | int64
// | float64 | string | bytes | array<Value> | map<string,Value>.
//
// Map keys preserve insertion order so JSON round-trips are stable; equality
// ignores that order (see Equal).
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	arr  []Value
	keys []string
	m    map[string]Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, by: append([]byte(nil), b...)} }
func Array(vs ...Value) Value    { return Value{kind: KindArray, arr: append([]Value(nil), vs...)} }

// Map builds an object value preserving the given key order.
func Map() *MapBuilder { return &MapBuilder{v: Value{kind: KindMap, m: map[string]Value{}}} }

// MapBuilder provides ordered insertion for object-kind values.
type MapBuilder struct{ v Value }

func (b *MapBuilder) Set(key string, val Value) *MapBuilder {
	if _, exists := b.v.m[key]; !exists {
		b.v.keys = append(b.v.keys, key)
	}
	b.v.m[key] = val
	return b
}

func (b *MapBuilder) Build() Value { return b.v }

// NewMap constructs an object value from a Go map, in sorted key order.
// Use Map()/Set() when caller-controlled insertion order matters.
func NewMap(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := Value{kind: KindMap, m: make(map[string]Value, len(m)), keys: keys}
	for k, v := range m {
		out.m[k] = v
	}
	return out
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Number reports the value as a float64 regardless of int/float storage,
// for use by comparisons and arithmetic mutators.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) BytesValue() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.by, true
}

func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Keys returns object keys in insertion order. Nil for non-map values.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	return append([]string(nil), v.keys...)
}

func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// WithField returns a copy of v (must be a map) with key set to val.
func (v Value) WithField(key string, val Value) Value {
	if v.kind != KindMap {
		v = Value{kind: KindMap, m: map[string]Value{}}
	}
	out := Value{kind: KindMap, m: make(map[string]Value, len(v.m)+1), keys: append([]string(nil), v.keys...)}
	for k, vv := range v.m {
		out.m[k] = vv
	}
	if _, exists := out.m[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.m[key] = val
	return out
}

// WithoutField returns a copy of v (must be a map) with key removed.
func (v Value) WithoutField(key string) Value {
	if v.kind != KindMap {
		return v
	}
	out := Value{kind: KindMap, m: make(map[string]Value, len(v.m))}
	for _, k := range v.keys {
		if k == key {
			continue
		}
		out.keys = append(out.keys, k)
		out.m[k] = v.m[k]
	}
	return out
}

// Equal implements spec.md §3 equality: integral-valued floats equal the
// same int64; map key order is ignored; array order matters.
func Equal(a, b Value) bool {
	an, aIsNum := a.Number()
	bn, bIsNum := b.Number()
	if aIsNum && bIsNum {
		return an == bn
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindBytes:
		if len(a.by) != len(b.by) {
			return false
		}
		for i := range a.by {
			if a.by[i] != b.by[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare returns -1/0/1 per spec.md §3 ordering rules (numeric, then
// lexicographic for string/bytes). ok is false for type-mismatched or
// otherwise incomparable operands (§4.2: "type-mismatch compares as false").
func Compare(a, b Value) (result int, ok bool) {
	an, aIsNum := a.Number()
	bn, bIsNum := b.Number()
	if aIsNum && bIsNum {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindString:
		return stringCompare(a.s, b.s), true
	case KindBytes:
		return bytesCompare(a.by, b.by), true
	case KindBool:
		if a.b == b.b {
			return 0, true
		}
		if !a.b && b.b {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// GoValue converts a Value to a plain Go value (map[string]interface{},
// []interface{}, string, float64/int64, bool, []byte, or nil) suitable for
// JSON marshaling or adapter-specific encoding.
func GoValue(v Value) interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.by
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = GoValue(e)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for _, k := range v.keys {
			out[k] = GoValue(v.m[k])
		}
		return out
	default:
		return nil
	}
}

// FromGoValue converts a plain Go value (as produced by encoding/json.Unmarshal
// into interface{}, or hand-built by an adapter) into a Value.
func FromGoValue(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case []interface{}:
		vs := make([]Value, len(t))
		for i, e := range t {
			cv, err := FromGoValue(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = cv
		}
		return Array(vs...), nil
	case []Value:
		return Array(t...), nil
	case map[string]interface{}:
		mb := Map()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cv, err := FromGoValue(t[k])
			if err != nil {
				return Value{}, err
			}
			mb.Set(k, cv)
		}
		return mb.Build(), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("value: unsupported Go type %T", x)
	}
}
