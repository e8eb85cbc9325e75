package wire

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the format character of a Value.
type Kind byte

// Value kinds.
const (
	KindInt   Kind = 'd'
	KindText  Kind = 's'
	KindFloat Kind = 'f'
)

// DefaultFloatPrecision is the number of decimals printed for floats.
const DefaultFloatPrecision = 2

// IsValid determines if the kind is one of the recognized format characters.
func (k Kind) IsValid() bool {
	return k == KindInt || k == KindText || k == KindFloat
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	}
	return fmt.Sprintf("kind(%q)", byte(k))
}

// Value is a typed field of a record.
type Value struct {
	Kind  Kind
	Int   int64
	Text  string
	Float float64
}

// Int creates an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Text creates a text Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Float creates a floating-point Value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Interface returns the Go value held.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	}
	return v.Text
}

// AppendTo appends the canonical text of the value.
func (v Value) AppendTo(dst []byte, precision int) []byte {
	switch v.Kind {
	case KindInt:
		return strconv.AppendInt(dst, v.Int, 10)
	case KindFloat:
		return strconv.AppendFloat(dst, v.Float, 'f', precision, 64)
	}
	return append(dst, v.Text...)
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return string(v.AppendTo(nil, DefaultFloatPrecision))
}

var (
	// ErrTooFewValues indicates the format consumes more values than supplied.
	ErrTooFewValues = errors.New("too few values for format")
	// ErrTooManyValues indicates values are left after the format is consumed.
	ErrTooManyValues = errors.New("too many values for format")
)

// KindMismatchError indicates a value disagrees with its format character.
type KindMismatchError struct {
	Pos  int
	Want Kind
	Got  Kind
}

// Error implements error.
func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("format position %d expects %s, got %s", e.Pos, e.Want, e.Got)
}

// FormatOf derives the format string from the kinds of values.
func FormatOf(values []Value) string {
	format := make([]byte, len(values))
	for n, v := range values {
		format[n] = byte(v.Kind)
	}
	return string(format)
}

// AppendFields renders format and values as
//
//	format \t field \t field \t ... end
//
// Every format character produces one field followed by a tab. Recognized
// characters consume the next value, which must be of the same kind.
// Other characters consume nothing and leave the field empty.
func AppendFields(dst []byte, format string, values []Value, precision int, end byte) ([]byte, error) {
	dst = append(dst, format...)
	dst = append(dst, '\t')
	next := 0
	for pos := 0; pos < len(format); pos++ {
		if kind := Kind(format[pos]); kind.IsValid() {
			if next >= len(values) {
				return nil, ErrTooFewValues
			}
			v := values[next]
			if v.Kind != kind {
				return nil, &KindMismatchError{Pos: pos, Want: kind, Got: v.Kind}
			}
			dst = v.AppendTo(dst, precision)
			next++
		}
		dst = append(dst, '\t')
	}
	if next != len(values) {
		return nil, ErrTooManyValues
	}
	return append(dst, end), nil
}
