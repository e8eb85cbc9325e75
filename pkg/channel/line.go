// Package channel provides byte transports for the device Bridge.
package channel

import (
	"bytes"
	"io"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Line implements bridge.Channel over a byte stream.
// A zero-byte read without error is treated as a read timeout.
type Line struct {
	ReadWriter io.ReadWriter
	Delim      byte

	buf   []byte
	chunk []byte
	err   error
}

// NewLine creates a Line reading lines terminated by '\n'.
func NewLine(rw io.ReadWriter) *Line {
	return &Line{
		ReadWriter: rw,
		Delim:      wire.CommandEnd,
		chunk:      make([]byte, 256),
	}
}

// ReadLine implements bridge.Channel.
func (l *Line) ReadLine() (string, error) {
	for {
		if line, ok := l.next(); ok {
			return line, nil
		}
		if err := l.fill(); err != nil {
			// a read may return the last line along with the error.
			if line, ok := l.next(); ok {
				l.err = err
				return line, nil
			}
			return "", err
		}
	}
}

// Available implements bridge.Poller. It reads at most once from the
// stream, so it may block for the read timeout of the stream.
func (l *Line) Available() bool {
	if bytes.IndexByte(l.buf, l.Delim) >= 0 {
		return true
	}
	if l.err != nil {
		return true
	}
	if err := l.read(); err != nil {
		l.err = err
		return true
	}
	return bytes.IndexByte(l.buf, l.Delim) >= 0
}

// Write implements io.Writer.
func (l *Line) Write(p []byte) (int, error) {
	return l.ReadWriter.Write(p)
}

// SetBaudRate implements bridge.BaudSetter.
func (l *Line) SetBaudRate(rate int) error {
	if setter, ok := l.ReadWriter.(bridge.BaudSetter); ok {
		return setter.SetBaudRate(rate)
	}
	return bridge.ErrBaudUnsupported
}

// Close closes the stream if it's closable.
func (l *Line) Close() error {
	if closer, ok := l.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (l *Line) next() (string, bool) {
	n := bytes.IndexByte(l.buf, l.Delim)
	if n < 0 {
		return "", false
	}
	line := string(l.buf[:n])
	l.buf = l.buf[n+1:]
	return line, true
}

// fill returns the error saved by Available first.
func (l *Line) fill() error {
	if err := l.err; err != nil {
		l.err = nil
		return err
	}
	return l.read()
}

func (l *Line) read() error {
	if l.chunk == nil {
		l.chunk = make([]byte, 256)
	}
	n, err := l.ReadWriter.Read(l.chunk)
	l.buf = append(l.buf, l.chunk[:n]...)
	return err
}

var _ bridge.Channel = (*Line)(nil)
