// Package bridge implements the device side of the serial bridge protocol.
package bridge

import (
	"errors"
	"fmt"
	"io"
)

// Channel is the byte transport to the host.
type Channel interface {
	io.Writer
	// ReadLine blocks until a full line is received and returns it
	// without the line terminator.
	ReadLine() (string, error)
}

// Poller is implemented by Channels which can tell whether a line is
// ready without blocking.
type Poller interface {
	Available() bool
}

// BaudSetter is implemented by Channels backed by a serial port.
type BaudSetter interface {
	SetBaudRate(int) error
}

// Clock is the time source of the device.
type Clock interface {
	// Elapsed returns a free-running counter which only decreases when
	// it wraps around.
	Elapsed() uint64
	// SetTime sets the wall clock to a unix time in seconds.
	SetTime(unix int64)
}

// Signal is the outcome of processing one inbound line.
type Signal int

// Signals returned by Read and Process.
const (
	// SignalNone means no effect: unrecognized command, start/stop
	// without transition, or data received while paused.
	SignalNone Signal = -1
	// SignalData means the line is application data to be handled by
	// the caller.
	SignalData     Signal = 0
	SignalStarted  Signal = 1
	SignalStopped  Signal = 2
	SignalInit     Signal = 3
	SignalIdentity Signal = 4
	SignalHello    Signal = 5
	SignalReady    Signal = 6
)

// String implements fmt.Stringer.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalData:
		return "data"
	case SignalStarted:
		return "started"
	case SignalStopped:
		return "stopped"
	case SignalInit:
		return "init"
	case SignalIdentity:
		return "identity"
	case SignalHello:
		return "hello"
	case SignalReady:
		return "ready"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// ErrBaudUnsupported indicates the Channel can't change its baud rate.
var ErrBaudUnsupported = errors.New("channel does not support baud rate changes")
