package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// FromAny converts an engine result into a Value.
//
// Native shapes (nil, bool, numbers, string, []any, map[string]any, Value,
// *OrderedMap) are converted directly. Plain Go maps have no order, so their
// keys are sorted. Anything else goes through encoding/json and is decoded back
// with key order preserved, so structs keep field order and json.Marshaler
// implementations keep theirs. Values with no JSON form produce a
// *SerializationFailure.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case *OrderedMap:
		return Object(t), nil
	case bool:
		return Boolean(t), nil
	case string:
		return Str(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Uint(uint64(t)), nil
	case uint8:
		return Uint(uint64(t)), nil
	case uint16:
		return Uint(uint64(t)), nil
	case uint32:
		return Uint(uint64(t)), nil
	case uint64:
		return Uint(t), nil
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		return fromNumberLiteral(string(t))
	case []Value:
		return List(append([]Value(nil), t...)...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewOrderedMap()
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, v)
		}
		return Object(m), nil
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, &SerializationFailure{Err: fmt.Errorf("%T: %w", x, err)}
	}
	v, err := ParseJSON(data)
	if err != nil {
		return Value{}, &SerializationFailure{Err: err}
	}
	return v, nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &SerializationFailure{Err: fmt.Errorf("unsupported number %v", f)}
	}
	return Num(f), nil
}

func fromNumberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || !json.Valid([]byte(lit)) {
		return Value{}, &SerializationFailure{Err: fmt.Errorf("invalid number literal %q", lit)}
	}
	return numberLiteral(lit, f), nil
}

// ParseJSON decodes a single JSON document into a Value, keeping object keys in
// document order. Trailing data after the document is an error.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("invalid json: trailing data")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("invalid json: %w", err)
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Boolean(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		return fromNumberLiteral(t.String())
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return Value{}, fmt.Errorf("invalid json: %w", err)
			}
			return List(items...), nil
		case '{':
			m := NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("invalid json: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("invalid json: object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, item)
			}
			if _, err := dec.Token(); err != nil { // '}'
				return Value{}, fmt.Errorf("invalid json: %w", err)
			}
			return Object(m), nil
		}
	}
	return Value{}, fmt.Errorf("invalid json: unexpected token %v", tok)
}
