// Package hosttest provides an in-process device for testing the host.
package hosttest

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/clock"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Loopback is a host side Conn whose other end is a device Bridge.
// Lines written are processed by the Bridge synchronously and frames
// emitted by the Bridge are returned by Read.
type Loopback struct {
	Clock   *clock.Manual
	Started chan struct{}

	lock   sync.Mutex
	bridge *bridge.Bridge
	input  []byte
	output bytes.Buffer
	lines  []string
	data   []string
	baud   int
	closed bool
}

// deviceSide is the Channel of the Bridge, only used with lock held.
type deviceSide struct {
	l *Loopback
}

func (s *deviceSide) Write(p []byte) (int, error) {
	return s.l.output.Write(p)
}

func (s *deviceSide) ReadLine() (string, error) {
	return "", io.EOF
}

// New creates a Loopback running a Bridge with identifier id.
// conf nil means bridge defaults.
func New(id string, conf *bridge.Config) *Loopback {
	if conf == nil {
		conf = bridge.NewConfig()
	}
	l := &Loopback{Clock: clock.NewManual(clock.DefaultBits), Started: make(chan struct{}, 1)}
	l.bridge = conf.NewBridge(id, &deviceSide{l: l}, l.Clock)
	return l
}

// Read implements io.Reader. It returns (0, nil) after a millisecond
// when there's nothing to read, like a serial port read timeout.
func (l *Loopback) Read(p []byte) (int, error) {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return 0, io.EOF
	}
	if l.output.Len() > 0 {
		n, _ := l.output.Read(p)
		l.lock.Unlock()
		return n, nil
	}
	l.lock.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

// Write implements io.Writer.
func (l *Loopback) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return 0, io.ErrClosedPipe
	}
	l.input = append(l.input, p...)
	for {
		n := bytes.IndexByte(l.input, wire.CommandEnd)
		if n < 0 {
			break
		}
		line := string(l.input[:n])
		l.input = l.input[n+1:]
		l.lines = append(l.lines, line)
		sig, err := l.bridge.Process(line)
		if err != nil {
			return 0, err
		}
		switch sig {
		case bridge.SignalData:
			l.data = append(l.data, line)
		case bridge.SignalStarted:
			select {
			case l.Started <- struct{}{}:
			default:
			}
		}
	}
	return len(p), nil
}

// Close implements io.Closer.
func (l *Loopback) Close() error {
	l.lock.Lock()
	l.closed = true
	l.lock.Unlock()
	return nil
}

// SetBaudRate implements bridge.BaudSetter.
func (l *Loopback) SetBaudRate(rate int) error {
	l.lock.Lock()
	l.baud = rate
	l.lock.Unlock()
	return nil
}

// BaudRate returns the last baud rate set.
func (l *Loopback) BaudRate() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.baud
}

// Device runs fn against the Bridge as the device application.
func (l *Loopback) Device(fn func(b *bridge.Bridge) error) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return fn(l.bridge)
}

// Received returns all lines received by the device.
func (l *Loopback) Received() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.lines...)
}

// ReceivedData returns the data lines received while running.
func (l *Loopback) ReceivedData() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.data...)
}

// Count counts how many times line was received.
func (l *Loopback) Count(line string) (n int) {
	for _, recv := range l.Received() {
		if recv == line {
			n++
		}
	}
	return
}

// Closed determines if the host closed the Conn.
func (l *Loopback) Closed() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.closed
}

// Inject queues raw frames as if sent by the device.
func (l *Loopback) Inject(frames ...string) {
	l.lock.Lock()
	l.output.WriteString(strings.Join(frames, ""))
	l.lock.Unlock()
}
