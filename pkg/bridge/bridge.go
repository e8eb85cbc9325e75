package bridge

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/wire"
)

// Bridge owns the protocol state of one physical link.
// It is not safe for concurrent use: all calls are expected from the
// single control loop of the device application.
type Bridge struct {
	config  Config
	channel Channel
	clock   Clock

	identifier  string
	initPayload string
	command     string
	paused      bool

	prevElapsed uint64
	overflows   uint64
	sequence    uint64
}

// New creates a Bridge in the paused state with default config.
func New(identifier string, ch Channel, clk Clock) *Bridge {
	return &Bridge{
		config:      defaultConfig,
		channel:     ch,
		clock:       clk,
		identifier:  identifier,
		initPayload: "\n",
		paused:      true,
	}
}

// Identifier returns the identity answered to get-identity.
func (b *Bridge) Identifier() string { return b.identifier }

// InitPayload returns the registered init payload including terminator.
func (b *Bridge) InitPayload() string { return b.initPayload }

// Command returns the last received line.
func (b *Bridge) Command() string { return b.command }

// Paused indicates the device is stopped.
func (b *Bridge) Paused() bool { return b.paused }

// Sequence returns the sequence number of the next clock tick.
func (b *Bridge) Sequence() uint64 { return b.sequence }

// Overflows returns the number of counter wraparounds observed.
func (b *Bridge) Overflows() uint64 { return b.overflows }

// Available indicates a line can be read without blocking.
// Channels without polling support always report true.
func (b *Bridge) Available() bool {
	if p, ok := b.channel.(Poller); ok {
		return p.Available()
	}
	return true
}

// ChangeBaud switches the Channel to a new baud rate.
func (b *Bridge) ChangeBaud(rate int) error {
	setter, ok := b.channel.(BaudSetter)
	if !ok {
		return ErrBaudUnsupported
	}
	glog.Infof("changing baud rate to %d", rate)
	return setter.SetBaudRate(rate)
}

// Read reads one line from the Channel and processes it.
// While paused, it first idles for a short while.
// The returned error is only about the Channel.
func (b *Bridge) Read() (Signal, error) {
	if b.paused && b.config.IdleDelay > 0 {
		time.Sleep(b.config.IdleDelay)
	}
	line, err := b.channel.ReadLine()
	if err != nil {
		return SignalNone, err
	}
	return b.Process(line)
}

// Process stores line as the last command and classifies it.
func (b *Bridge) Process(line string) (Signal, error) {
	b.command = line
	if b.config.DebugEcho {
		if err := b.emit(append([]byte(line), b.config.PacketEnd)); err != nil {
			return SignalNone, err
		}
	}

	if !wire.IsCommand(line) {
		if b.paused {
			return SignalNone, nil
		}
		return SignalData, nil
	}
	if len(line) < 2 {
		return SignalNone, nil
	}

	glog.V(2).Infof("command %q", line)
	switch line[1] {
	case wire.CmdStart:
		if epoch, ok := b.parseEpoch(line[2:]); ok {
			b.clock.SetTime(epoch)
		} else if len(line) > 2 {
			glog.V(2).Infof("ignored invalid start time %q", line[2:])
		}
		if b.Unpause() {
			return SignalStarted, nil
		}
	case wire.CmdStop:
		stopped, err := b.Pause()
		if err != nil {
			return SignalNone, err
		}
		if stopped {
			return SignalStopped, nil
		}
	case wire.CmdInit:
		return SignalInit, b.writeInit()
	case wire.CmdIdentity:
		return SignalIdentity, b.writeIdentity()
	case wire.CmdHello:
		if !b.config.ResetsOnConnect {
			return SignalHello, b.WriteHello()
		}
	case wire.CmdReady:
		if !b.config.ResetsOnConnect {
			return SignalReady, b.WriteReady()
		}
	}
	return SignalNone, nil
}

// Unpause leaves the paused state.
// It returns false if the device is already running.
func (b *Bridge) Unpause() bool {
	if !b.paused {
		return false
	}
	b.paused = false
	return true
}

// Pause enters the paused state and sends the stopping notice.
// It returns false if the device is already paused.
func (b *Bridge) Pause() (bool, error) {
	if b.paused {
		return false, nil
	}
	b.paused = true
	return true, b.emit([]byte(wire.StoppingNotice))
}

// parseEpoch takes the leading decimal digits of the start suffix, after
// blanks and an optional '+', and accepts them only when they form a
// plausible epoch.
func (b *Bridge) parseEpoch(suffix string) (int64, bool) {
	suffix = strings.TrimLeft(suffix, " \t\r\v\f")
	suffix = strings.TrimPrefix(suffix, "+")
	end := 0
	for end < len(suffix) && suffix[end] >= '0' && suffix[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	epoch, err := strconv.ParseInt(suffix[:end], 10, 64)
	if err != nil || epoch < b.config.MinEpoch {
		return 0, false
	}
	return epoch, true
}
