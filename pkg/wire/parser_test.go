package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScanner(t *testing.T) {
	s := NewScanner('\n')
	require.Empty(t, s.Feed([]byte("~hel")))
	require.Equal(t, "~hel", s.Pending())
	require.Equal(t, []string{"~hello!", "~ready!"}, s.Feed([]byte("lo!\n~ready!\n~iam")))
	require.Equal(t, []string{"~iamBOARD1", ""}, s.Feed([]byte("BOARD1\n\n")))
	require.Empty(t, s.Pending())
	s.Feed([]byte("partial"))
	s.Reset()
	require.Empty(t, s.Pending())
}

func TestClockTick(t *testing.T) {
	tick := ClockTick{Overflows: 2, Elapsed: 5, Sequence: 0x100000003}
	encoded := string(tick.AppendTo(nil, '\n'))
	require.Equal(t, "~ct:2:5:1:3\n", encoded)

	parsed, ok, err := ParseClockTick(encoded[:len(encoded)-1])
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, tick, parsed)

	require.Equal(t, uint64(2)<<32+5, parsed.Ticks(1<<32))
	require.Equal(t, time.Duration(2<<32+5)*time.Microsecond, parsed.Duration(1<<32, time.Microsecond))

	_, ok, err = ParseClockTick("data\td\t1\t")
	require.False(t, ok)
	require.NoError(t, err)

	_, ok, err = ParseClockTick("~ct:1:2:3")
	require.True(t, ok)
	require.Error(t, err)
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("numbers\tdsf\t12\thi\t0.50\t")
	require.NoError(t, err)
	require.Equal(t, "numbers", rec.Name)
	require.Equal(t, "dsf", rec.Format)
	require.Equal(t, []Value{Int(12), Text("hi"), Float(0.5)}, rec.Values)

	rec, err = ParseRecord("pad\tdxd\t1\t\t2\t")
	require.NoError(t, err)
	require.Equal(t, []Value{Int(1), Text(""), Int(2)}, rec.Values)

	rec, err = ParseRecord("empty\t\t")
	require.NoError(t, err)
	require.Empty(t, rec.Values)

	_, err = ParseRecord("numbers\tdd\t1\t")
	require.IsType(t, &RecordError{}, err)
	_, err = ParseRecord("numbers\td\tone\t")
	require.IsType(t, &RecordError{}, err)
	_, err = ParseRecord("numbers")
	require.IsType(t, &RecordError{}, err)
}

func TestParseInitRoundTrip(t *testing.T) {
	values := []Value{Int(7), Text("lidar"), Float(2.25)}
	payload, err := AppendFields(nil, FormatOf(values), values, DefaultFloatPrecision, '\n')
	require.NoError(t, err)
	rec, err := ParseInit(string(payload[:len(payload)-1]))
	require.NoError(t, err)
	require.Equal(t, "dsf", rec.Format)
	require.Equal(t, values, rec.Values)
}

func TestHeaders(t *testing.T) {
	header, ok := HandshakeHeader("~iamBOARD1")
	require.True(t, ok)
	require.Equal(t, TagIdentity, header)
	_, ok = HandshakeHeader("~ct:0:1:0:0")
	require.False(t, ok)
	require.Equal(t, "~>1700000000", StartCommand(1700000000))
	require.Equal(t, "~>", StartCommand(0))
	require.Equal(t, "~?", Command(CmdIdentity))
	require.True(t, IsCommand("~<"))
	require.False(t, IsCommand(""))
}
