package parse

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	// KindRaw is a nested structure (object, array, element tree) re-serialized
	// to its raw JSON or XML text. Nested values are never flattened into
	// separate columns; callers that want the structure parse the text
	// themselves.
	KindRaw
)

// Value is a single column value. It holds a closed set of primitive kinds
// plus a raw-nested-text fallback, keeping downstream hashing and display
// logic exhaustive.
//
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Decimal returns an arbitrary-precision decimal value. Used for numbers
// that fit neither int64 nor float64 without precision loss.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Raw returns a value holding re-serialized nested structure text.
func Raw(s string) Value { return Value{kind: KindRaw, s: s} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean variant. Valid only when Kind is KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer variant. Valid only when Kind is KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float variant. Valid only when Kind is KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsDecimal returns the decimal variant. Valid only when Kind is KindDecimal.
func (v Value) AsDecimal() decimal.Decimal { return v.d }

// AsString returns the string or raw-text variant. Valid when Kind is
// KindString or KindRaw.
func (v Value) AsString() string { return v.s }

// String renders the value for display. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	default:
		return v.s
	}
}

// Any returns the value as a plain Go value (nil, bool, int64, float64,
// decimal.Decimal, or string). Useful for handing rows to encoders.
func (v Value) Any() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	default:
		return v.s
	}
}

// MarshalJSON implements json.Marshaler. Raw values marshal as strings
// containing the nested text, preserving fidelity.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindDecimal:
		return []byte(v.d.String()), nil
	default:
		return json.Marshal(v.s)
	}
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.d.Equal(o.d)
	default:
		return v.s == o.s
	}
}
