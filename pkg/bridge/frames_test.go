package bridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialbridge/pkg/wire"
)

func TestWriteTime(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.clock.Set(1000)
	require.NoError(t, env.bridge.WriteTime())
	env.clock.Set(2000)
	require.NoError(t, env.bridge.WriteTime())
	require.Equal(t, "~ct:0:1000:0:0\n~ct:0:2000:0:1\n", env.channel.take())
	require.Equal(t, uint64(2), env.bridge.Sequence())
}

func TestOverflowDetection(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	readings := []uint64{10, 4294967290, 5, 5, 6, 3, 4294967295, 0}
	expect := []uint64{0, 0, 1, 1, 1, 2, 2, 3}
	for n, reading := range readings {
		env.clock.Set(reading)
		require.NoError(t, env.bridge.WriteTime())
		tick, ok, err := wire.ParseClockTick(strings.TrimSuffix(env.channel.take(), "\n"))
		require.True(t, ok)
		require.NoError(t, err)
		require.Equal(t, expect[n], tick.Overflows, "reading %d", n)
		require.Equal(t, expect[n], env.bridge.Overflows())
		require.Equal(t, reading, tick.Elapsed)
	}
}

func TestOverflowNarrowCounter(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.clock.Bits = 8
	env.clock.Set(250)
	require.NoError(t, env.bridge.WriteTime())
	env.clock.Advance(10)
	require.NoError(t, env.bridge.WriteTime())
	require.Equal(t, "~ct:0:250:0:0\n~ct:1:4:0:1\n", env.channel.take())
}

func TestSequenceRun(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.bridge.sequence = 0xfffffffe
	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			require.NoError(t, env.bridge.WriteTime())
		} else {
			require.NoError(t, env.bridge.WriteValues("n", wire.Int(int64(i))))
		}
	}
	var seqs []uint64
	for _, packet := range strings.Split(env.channel.take(), "\n") {
		if tick, ok, err := wire.ParseClockTick(packet); ok {
			require.NoError(t, err)
			seqs = append(seqs, tick.Sequence)
		}
	}
	require.Equal(t, []uint64{0xfffffffe, 0xffffffff, 0x100000000, 0x100000001, 0x100000002}, seqs)
}

func TestSequenceSplitOnWire(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.bridge.sequence = 0x100000005
	env.clock.Set(7)
	require.NoError(t, env.bridge.WriteTime())
	require.Equal(t, "~ct:0:7:1:5\n", env.channel.take())
}

func TestWriteRecord(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.clock.Set(42)
	require.NoError(t, env.bridge.Write("numbers", "dsf", wire.Int(12), wire.Text("abc"), wire.Float(1.5)))
	require.Equal(t, "~ct:0:42:0:0\nnumbers\tdsf\t12\tabc\t1.50\t\n", env.channel.take())

	require.NoError(t, env.bridge.WriteValues("pair", wire.Int(1), wire.Int(-2)))
	require.Equal(t, "~ct:0:42:0:1\npair\tdd\t1\t-2\t\n", env.channel.take())
}

func TestWriteRecordUnknownFormatChar(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	require.NoError(t, env.bridge.Write("q", "d?d", wire.Int(1), wire.Int(2)))
	require.Equal(t, "~ct:0:0:0:0\nq\td?d\t1\t\t2\t\n", env.channel.take())
}

func TestWriteRecordMismatch(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	err := env.bridge.Write("q", "s", wire.Int(1))
	require.IsType(t, &wire.KindMismatchError{}, err)
	require.Equal(t, wire.ErrTooFewValues, env.bridge.Write("q", "dd", wire.Int(1)))
	require.Empty(t, env.channel.take())
	require.Equal(t, uint64(0), env.bridge.Sequence())
}

func TestInitRoundTrip(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	require.NoError(t, env.bridge.SetInitData("dsf", wire.Int(5), wire.Text("cfg"), wire.Float(0.25)))
	require.Equal(t, "dsf\t5\tcfg\t0.25\t\n", env.bridge.InitPayload())
	require.Equal(t, SignalInit, env.process("~|"))
	require.Equal(t, "~init:dsf\t5\tcfg\t0.25\t\n", env.channel.take())

	require.NoError(t, env.bridge.SetInitValues(wire.Text("x")))
	require.Equal(t, SignalInit, env.process("~|"))
	require.Equal(t, "~init:s\tx\t\n", env.channel.take())

	require.Error(t, env.bridge.SetInitData("d"))
	require.Equal(t, "s\tx\t\n", env.bridge.InitPayload())
}

func TestCustomPacketEnd(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.bridge.config.PacketEnd = ';'
	require.NoError(t, env.bridge.SetInitValues(wire.Int(1)))
	env.process("~?")
	env.process("~|")
	env.process("~!")
	require.NoError(t, env.bridge.WriteValues("v", wire.Int(2)))
	require.Equal(t, "~iamB;~init:d\t1\t;~hello!;~ct:0:0:0:0;v\td\t2\t;", env.channel.take())
}
