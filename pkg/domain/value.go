package domain

import (
	"math"
	"strconv"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the structured result of one evaluation.
// It is a tagged union over null, boolean, number, string, ordered sequence
// and string-keyed mapping. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	lit  string // exact number literal when known (integers, json.Number)
	s    string
	list []Value
	m    *OrderedMap
}

// Value constructors
func Null() Value          { return Value{kind: KindNull} }
func Boolean(b bool) Value { return Value{kind: KindBool, b: b} }
func Num(f float64) Value  { return Value{kind: KindNumber, n: f} }
func Int(i int64) Value    { return Value{kind: KindNumber, n: float64(i), lit: strconv.FormatInt(i, 10)} }
func Uint(u uint64) Value  { return Value{kind: KindNumber, n: float64(u), lit: strconv.FormatUint(u, 10)} }
func Str(s string) Value   { return Value{kind: KindString, s: s} }
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Object wraps an ordered map. A nil map yields an empty object.
func Object(m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{kind: KindMap, m: m}
}

// numberLiteral builds a Number from a literal that already parsed as a float.
func numberLiteral(lit string, f float64) Value {
	return Value{kind: KindNumber, n: f, lit: lit}
}

func (v Value) Kind() Kind          { return v.kind }
func (v Value) IsNull() bool        { return v.kind == KindNull }
func (v Value) AsBool() bool        { return v.b }
func (v Value) AsFloat() float64    { return v.n }
func (v Value) AsString() string    { return v.s }
func (v Value) Items() []Value      { return v.list }
func (v Value) Fields() *OrderedMap { return v.m }

// NumberLiteral returns the JSON text of a number Value.
// Numbers built from floats are formatted the way ECMAScript's JSON.stringify
// formats them. NaN and infinities have no JSON form and report ok=false.
func (v Value) NumberLiteral() (string, bool) {
	if v.lit != "" {
		return v.lit, true
	}
	return FormatNumber(v.n)
}

// FormatNumber renders f using the shortest representation that round-trips,
// switching to exponent form outside [1e-6, 1e21).
func FormatNumber(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == 0 {
		return "0", true // also folds negative zero
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return string(b), true
}

// Equal reports whether a and b are structurally equal.
// Numbers compare by value, mappings compare irrespective of key order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.keys {
			other, ok := b.m.Get(k)
			if !ok || !Equal(a.m.values[k], other) {
				return false
			}
		}
		return true
	}
	return false
}

// OrderedMap is a string-keyed mapping that remembers insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap creates an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// Set stores v under key. Replacing an existing key keeps its position.
func (m *OrderedMap) Set(key string, v Value) *OrderedMap {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Get returns the value stored under key.
func (m *OrderedMap) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (m *OrderedMap) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
