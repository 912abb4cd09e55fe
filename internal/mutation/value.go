package mutation

import (
	"strconv"
)

// ValueKind tags attribute values on the wire.
type ValueKind uint8

const (
	// ValueNone removes the attribute.
	ValueNone ValueKind = iota
	ValueText
	ValueInt
	ValueFloat
	ValueBool
)

// Value is a primitive attribute value.
type Value struct {
	Kind  ValueKind `msgpack:"k" json:"kind"`
	Text  string    `msgpack:"s,omitempty" json:"text,omitempty"`
	Int   int64     `msgpack:"i,omitempty" json:"int,omitempty"`
	Float float64   `msgpack:"f,omitempty" json:"float,omitempty"`
	Bool  bool      `msgpack:"b,omitempty" json:"bool,omitempty"`
}

// TextValue builds a text value.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// IntValue builds an integer value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue builds a float value.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// BoolValue builds a boolean value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// String renders the value the way a DOM attribute would hold it.
func (v Value) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}
