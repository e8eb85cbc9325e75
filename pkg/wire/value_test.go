package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendFields(t *testing.T) {
	testCases := []struct {
		name   string
		format string
		values []Value
		expect string
	}{
		{"empty", "", nil, "\t\n"},
		{"int", "d", []Value{Int(12)}, "d\t12\t\n"},
		{"negative int", "d", []Value{Int(-3)}, "d\t-3\t\n"},
		{"text", "s", []Value{Text("hello")}, "s\thello\t\n"},
		{"float", "f", []Value{Float(3.14159)}, "f\t3.14\t\n"},
		{"mixed", "dsf", []Value{Int(1), Text("x"), Float(0.5)}, "dsf\t1\tx\t0.50\t\n"},
		{"unknown char pads", "dxd", []Value{Int(1), Int(2)}, "dxd\t1\t\t2\t\n"},
		{"only unknown", "zz", nil, "zz\t\t\t\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := AppendFields(nil, tc.format, tc.values, DefaultFloatPrecision, '\n')
			require.NoError(t, err)
			require.Equal(t, tc.expect, string(out))
		})
	}
}

func TestAppendFieldsErrors(t *testing.T) {
	_, err := AppendFields(nil, "dd", []Value{Int(1)}, 2, '\n')
	require.Equal(t, ErrTooFewValues, err)

	_, err = AppendFields(nil, "d", []Value{Int(1), Int(2)}, 2, '\n')
	require.Equal(t, ErrTooManyValues, err)

	_, err = AppendFields(nil, "xs", []Value{Int(1)}, 2, '\n')
	require.IsType(t, &KindMismatchError{}, err)
	mismatch := err.(*KindMismatchError)
	require.Equal(t, 1, mismatch.Pos)
	require.Equal(t, KindText, mismatch.Want)
	require.Equal(t, KindInt, mismatch.Got)
}

func TestFormatOf(t *testing.T) {
	require.Equal(t, "dsf", FormatOf([]Value{Int(1), Text("a"), Float(1)}))
	require.Equal(t, "", FormatOf(nil))
}

func TestFloatPrecision(t *testing.T) {
	out, err := AppendFields(nil, "f", []Value{Float(1.0 / 3)}, 4, ';')
	require.NoError(t, err)
	require.Equal(t, "f\t0.3333\t;", string(out))
}
