// Package render implements the canonical pretty-printer used to turn an
// evaluation result into display text.
//
// The output follows the JSON grammar with four-space indentation, keys in the
// order the engine produced them, and scalars formatted the way a browser's
// JSON.stringify(value, null, 4) would format them.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/harness/pkg/domain"
)

// Indent is the unit of nesting used by Pretty.
const Indent = "    "

// Pretty renders v as indented JSON text.
// It fails with a *domain.SerializationFailure when v holds a number with no
// JSON form (NaN, ±Inf).
func Pretty(v domain.Value) (string, error) {
	var b strings.Builder
	if err := write(&b, v, Indent, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Compact renders v as JSON text without insignificant whitespace.
func Compact(v domain.Value) (string, error) {
	var b strings.Builder
	if err := write(&b, v, "", 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// PrettyAny converts an arbitrary engine result and renders it with Pretty.
func PrettyAny(x any) (string, error) {
	v, err := domain.FromAny(x)
	if err != nil {
		return "", err
	}
	return Pretty(v)
}

func write(b *strings.Builder, v domain.Value, indent string, depth int) error {
	switch v.Kind() {
	case domain.KindNull:
		b.WriteString("null")
	case domain.KindBool:
		if v.AsBool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case domain.KindNumber:
		lit, ok := v.NumberLiteral()
		if !ok {
			return &domain.SerializationFailure{Err: fmt.Errorf("unsupported number %v", v.AsFloat())}
		}
		b.WriteString(lit)
	case domain.KindString:
		writeString(b, v.AsString())
	case domain.KindList:
		items := v.Items()
		if len(items) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, indent, depth+1)
			if err := write(b, item, indent, depth+1); err != nil {
				return err
			}
		}
		newline(b, indent, depth)
		b.WriteByte(']')
	case domain.KindMap:
		fields := v.Fields()
		if fields.Len() == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteByte('{')
		var err error
		i := 0
		fields.Range(func(key string, item domain.Value) bool {
			if i > 0 {
				b.WriteByte(',')
			}
			i++
			newline(b, indent, depth+1)
			writeString(b, key)
			b.WriteByte(':')
			if indent != "" {
				b.WriteByte(' ')
			}
			err = write(b, item, indent, depth+1)
			return err == nil
		})
		if err != nil {
			return err
		}
		newline(b, indent, depth)
		b.WriteByte('}')
	default:
		return &domain.SerializationFailure{Err: fmt.Errorf("unknown value kind %d", v.Kind())}
	}
	return nil
}

func newline(b *strings.Builder, indent string, depth int) {
	if indent == "" {
		return
	}
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(indent)
	}
}

// writeString quotes s with JSON escapes. HTML characters are left as-is.
func writeString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // a string always encodes
	b.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
