package channel

import (
	"io"
	"os"
	"time"
)

// TimeoutReader turns a blocking reader into one returning (0, nil)
// when no data arrives within Timeout, like a serial port.
type TimeoutReader struct {
	Timeout time.Duration

	chunks  chan []byte
	pending []byte
	err     error
	errCh   chan error
}

// NewTimeoutReader starts reading r in background.
func NewTimeoutReader(r io.Reader, timeout time.Duration) *TimeoutReader {
	t := &TimeoutReader{
		Timeout: timeout,
		chunks:  make(chan []byte),
		errCh:   make(chan error, 1),
	}
	go t.pump(r)
	return t
}

func (t *TimeoutReader) pump(r io.Reader) {
	for {
		buf := make([]byte, 256)
		n, err := r.Read(buf)
		if n > 0 {
			t.chunks <- buf[:n]
		}
		if err != nil {
			t.errCh <- err
			return
		}
	}
}

// Read implements io.Reader.
func (t *TimeoutReader) Read(p []byte) (int, error) {
	if len(t.pending) == 0 {
		if t.err != nil {
			return 0, t.err
		}
		var timeout <-chan time.Time
		if t.Timeout > 0 {
			timeout = time.After(t.Timeout)
		}
		select {
		case t.pending = <-t.chunks:
		case t.err = <-t.errCh:
			return 0, t.err
		case <-timeout:
			return 0, nil
		}
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

type stdio struct {
	io.Reader
	io.Writer
}

// Stdio opens stdin/stdout as a Line with the read timeout.
func Stdio(readTimeout time.Duration) *Line {
	return NewLine(&stdio{Reader: NewTimeoutReader(os.Stdin, readTimeout), Writer: os.Stdout})
}

// OpenOrStdio opens the serial port, or stdin/stdout if no device is
// configured.
func (c *Config) OpenOrStdio() (*Line, error) {
	if c.Device == "" {
		return Stdio(c.ReadTimeout), nil
	}
	return c.Open()
}
