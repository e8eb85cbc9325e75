package bridge

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialbridge/pkg/clock"
	"github.com/robotalks/serialbridge/pkg/wire"
)

type fakeChannel struct {
	lines []string
	out   bytes.Buffer
	baud  int
}

func (c *fakeChannel) ReadLine() (string, error) {
	if len(c.lines) == 0 {
		return "", io.EOF
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *fakeChannel) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func (c *fakeChannel) SetBaudRate(rate int) error {
	c.baud = rate
	return nil
}

// take returns and clears the output so far.
func (c *fakeChannel) take() string {
	s := c.out.String()
	c.out.Reset()
	return s
}

type bridgeTestEnv struct {
	t       *testing.T
	channel *fakeChannel
	clock   *clock.Manual
	bridge  *Bridge
}

func newBridgeTestEnv(t *testing.T, id string) *bridgeTestEnv {
	env := &bridgeTestEnv{
		t:       t,
		channel: &fakeChannel{},
		clock:   clock.NewManual(32),
	}
	conf := NewConfig()
	conf.IdleDelay = 0
	env.bridge = conf.NewBridge(id, env.channel, env.clock)
	return env
}

func (e *bridgeTestEnv) process(line string) Signal {
	sig, err := e.bridge.Process(line)
	require.NoError(e.t, err)
	return sig
}

func TestInitialState(t *testing.T) {
	env := newBridgeTestEnv(t, "BOARD1")
	require.True(t, env.bridge.Paused())
	require.Equal(t, "BOARD1", env.bridge.Identifier())
	require.Equal(t, "\n", env.bridge.InitPayload())
	require.Equal(t, uint64(0), env.bridge.Sequence())
	require.Equal(t, uint64(0), env.bridge.Overflows())
	require.Empty(t, env.bridge.Command())
}

func TestCommands(t *testing.T) {
	testCases := []struct {
		name   string
		start  bool
		line   string
		signal Signal
		output string
		paused bool
	}{
		{"identity", false, "~?", SignalIdentity, "~iamBOARD1\n", true},
		{"init default", false, "~|", SignalInit, "~init:\n", true},
		{"hello", false, "~!", SignalHello, "~hello!\n", true},
		{"ready", false, "~+", SignalReady, "~ready!\n", true},
		{"start", false, "~>", SignalStarted, "", false},
		{"start again", true, "~>", SignalNone, "", false},
		{"stop", true, "~<", SignalStopped, "\n~stopping\n", true},
		{"stop again", false, "~<", SignalNone, "", true},
		{"unknown command", false, "~x", SignalNone, "", true},
		{"sentinel only", false, "~", SignalNone, "", true},
		{"data while paused", false, "hello world", SignalNone, "", true},
		{"data while running", true, "hello world", SignalData, "", false},
		{"empty line while running", true, "", SignalData, "", false},
		{"identity while running", true, "~?", SignalIdentity, "~iamBOARD1\n", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newBridgeTestEnv(t, "BOARD1")
			if tc.start {
				require.Equal(t, SignalStarted, env.process("~>"))
			}
			env.channel.take()
			require.Equal(t, tc.signal, env.process(tc.line))
			require.Equal(t, tc.output, env.channel.take())
			require.Equal(t, tc.line, env.bridge.Command())
			require.Equal(t, tc.paused, env.bridge.Paused())
		})
	}
}

func TestStartStopSequences(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	cmds := []string{"~>", "~>", "~<", "~<", "~>", "~<", "~>", "~>"}
	prev := ""
	for _, cmd := range cmds {
		sig := env.process(cmd)
		if cmd == prev {
			require.Equal(t, SignalNone, sig, "repeated %q", cmd)
		} else {
			require.NotEqual(t, SignalNone, sig, "first %q", cmd)
		}
		require.Equal(t, cmd == "~<", env.bridge.Paused())
		prev = cmd
	}
}

func TestStartSetsClock(t *testing.T) {
	testCases := []struct {
		name    string
		line    string
		wall    int64
		setTime int
	}{
		{"valid epoch", "~>1700000000", 1700000000, 1},
		{"min epoch", "~>1357041600", 1357041600, 1},
		{"below threshold", "~>100", 0, 0},
		{"garbage", "~>abc", 0, 0},
		{"trailing garbage", "~>1700000000xyz", 1700000000, 1},
		{"negative", "~>-1700000000", 0, 0},
		{"plus sign", "~>+1700000000", 1700000000, 1},
		{"blanks and plus", "~> \t+1700000000", 1700000000, 1},
		{"double plus", "~>++1700000000", 0, 0},
		{"overflow", "~>99999999999999999999999", 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newBridgeTestEnv(t, "B")
			require.Equal(t, SignalStarted, env.process(tc.line))
			require.False(t, env.bridge.Paused())
			wall, n := env.clock.Wall()
			require.Equal(t, tc.setTime, n)
			require.Equal(t, tc.wall, wall)
		})
	}
}

func TestStartWhileRunningStillSetsClock(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.process("~>")
	require.Equal(t, SignalNone, env.process("~>1700000000"))
	wall, _ := env.clock.Wall()
	require.Equal(t, int64(1700000000), wall)
}

func TestDataWhilePausedUpdatesCommand(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	require.Equal(t, SignalNone, env.process("d"))
	require.Equal(t, "d", env.bridge.Command())
	env.process("~>")
	require.Equal(t, SignalData, env.process("s1"))
	require.Equal(t, "s1", env.bridge.Command())
	env.process("~<")
	require.Equal(t, SignalNone, env.process("s2"))
	require.Equal(t, "s2", env.bridge.Command())
}

func TestResetsOnConnect(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.bridge.config.ResetsOnConnect = true
	require.Equal(t, SignalNone, env.process("~!"))
	require.Equal(t, SignalNone, env.process("~+"))
	require.Empty(t, env.channel.take())
}

func TestDebugEcho(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	env.bridge.config.DebugEcho = true
	require.Equal(t, SignalIdentity, env.process("~?"))
	require.Equal(t, "~?\n~iamB\n", env.channel.take())
}

func TestRead(t *testing.T) {
	env := newBridgeTestEnv(t, "BOARD1")
	env.channel.lines = []string{"~?", "~>", "payload"}
	for _, expect := range []Signal{SignalIdentity, SignalStarted, SignalData} {
		sig, err := env.bridge.Read()
		require.NoError(t, err)
		require.Equal(t, expect, sig)
	}
	require.Equal(t, "payload", env.bridge.Command())
	_, err := env.bridge.Read()
	require.Equal(t, io.EOF, err)
}

type failingWriter struct {
	fakeChannel
}

func (w *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("unplugged")
}

func TestWriteErrors(t *testing.T) {
	b := New("B", &failingWriter{}, clock.NewManual(32))
	_, err := b.Process("~?")
	require.EqualError(t, err, "unplugged")
	require.True(t, b.Unpause())
	_, err = b.Process("~<")
	require.EqualError(t, err, "unplugged")
	require.True(t, b.Paused())
}

func TestChangeBaud(t *testing.T) {
	env := newBridgeTestEnv(t, "B")
	require.NoError(t, env.bridge.ChangeBaud(230400))
	require.Equal(t, 230400, env.channel.baud)
	require.True(t, env.bridge.Available())

	b := New("B", &writerOnly{}, clock.NewManual(32))
	require.Equal(t, ErrBaudUnsupported, b.ChangeBaud(9600))
}

type writerOnly struct{}

func (writerOnly) ReadLine() (string, error)   { return "", io.EOF }
func (writerOnly) Write(p []byte) (int, error) { return len(p), nil }

func TestSignalString(t *testing.T) {
	require.Equal(t, "started", SignalStarted.String())
	require.Equal(t, "none", SignalNone.String())
	require.Equal(t, "signal(9)", Signal(9).String())
}

func TestHandshakeFrames(t *testing.T) {
	env := newBridgeTestEnv(t, "lidar")
	require.NoError(t, env.bridge.SetInitValues(wire.Int(3)))
	for _, line := range []string{"~!", "~+", "~?", "~|"} {
		env.process(line)
	}
	require.Equal(t, "~hello!\n~ready!\n~iamlidar\n~init:d\t3\t\n", env.channel.take())
}
