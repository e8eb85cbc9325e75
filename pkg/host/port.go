package host

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/channel"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Conn is the byte stream of a Port.
// Read is expected to return (0, nil) when its read timeout expires.
type Conn interface {
	io.ReadWriteCloser
}

// Port is a host side connection to one device.
type Port struct {
	Address string
	// Whoiam is the device identity, set by the handshake.
	Whoiam string
	// InitPacket is the init payload, set by the handshake.
	InitPacket string
	// StartTime is when the first bytes were received.
	StartTime time.Time

	config  *Config
	conn    Conn
	scanner *wire.Scanner
	pending []string
	chunk   []byte

	readLock  sync.Mutex
	writeLock sync.Mutex
	closed    bool
}

// NewPort wraps an opened Conn.
func (c *Config) NewPort(address string, conn Conn) *Port {
	return &Port{
		Address: address,
		config:  c,
		conn:    conn,
		scanner: wire.NewScanner(c.PacketEnd),
		chunk:   make([]byte, 4096),
	}
}

// OpenPort opens a serial port at the default baud rate.
func (c *Config) OpenPort(address string) (*Port, error) {
	conf := channel.NewConfig()
	conf.Device = address
	conf.BaudRate = wire.DefaultBaudRate
	conf.ReadTimeout = c.ReadTimeout
	conn, err := conf.OpenPort()
	if err != nil {
		return nil, err
	}
	return c.NewPort(address, conn), nil
}

// Conn returns the underlying byte stream.
func (p *Port) Conn() Conn {
	return p.conn
}

// WriteCommand writes a line to the device.
func (p *Port) WriteCommand(line string) error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	if p.closed {
		return io.ErrClosedPipe
	}
	glog.V(3).Infof("%s <- %q", p.Address, line)
	_, err := p.conn.Write(append([]byte(line), wire.CommandEnd))
	return err
}

// ReadPackets reads once from the device and returns the packets
// completed so far, including the ones left over by Ask.
func (p *Port) ReadPackets() (time.Time, []string, error) {
	p.readLock.Lock()
	defer p.readLock.Unlock()
	err := p.fill()
	packets := p.pending
	p.pending = nil
	return time.Now(), packets, err
}

func (p *Port) fill() error {
	n, err := p.conn.Read(p.chunk)
	if n > 0 {
		if p.StartTime.IsZero() {
			p.StartTime = time.Now()
		}
		p.pending = append(p.pending, p.scanner.Feed(p.chunk[:n])...)
	}
	return err
}

// Ask sends ask (if not empty) and waits for a packet starting with
// header, returning the rest of the packet. Other packets are dropped.
// When no answer comes within a fifth of the timeout, stop and ask are
// sent again every ResendInterval.
func (p *Port) Ask(ctx context.Context, ask, header string, timeout time.Duration) (string, error) {
	if ask != "" {
		if err := p.WriteCommand(ask); err != nil {
			return "", err
		}
	}
	start := time.Now()
	deadline, resendAt := start.Add(timeout), start.Add(timeout/5)
	p.readLock.Lock()
	defer p.readLock.Unlock()
	for {
		for len(p.pending) > 0 {
			packet := p.pending[0]
			p.pending = p.pending[1:]
			if packet == "" {
				continue
			}
			if wire.HasHeader(packet, header) {
				return packet[len(header):], nil
			}
			glog.V(2).Infof("%s: dropped %q while waiting for %q", p.Address, packet, header)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		now := time.Now()
		if now.After(deadline) {
			return "", &ProtocolError{Address: p.Address, Ask: ask, Header: header, Timeout: timeout}
		}
		if ask != "" && now.After(resendAt) {
			glog.V(1).Infof("%s: no response to %q, asking again", p.Address, ask)
			if err := p.WriteCommand(wire.Command(wire.CmdStop)); err != nil {
				return "", err
			}
			if err := p.WriteCommand(ask); err != nil {
				return "", err
			}
			resendAt = now.Add(p.config.ResendInterval)
		}
		if err := p.fill(); err != nil {
			return "", err
		}
	}
}

// Handshake runs hello, ready, identity and init in order.
func (p *Port) Handshake(ctx context.Context) (err error) {
	if _, err = p.Ask(ctx, wire.Command(wire.CmdHello), wire.TagHello, p.config.ProtocolTimeout); err != nil {
		return
	}
	if _, err = p.Ask(ctx, wire.Command(wire.CmdReady), wire.TagReady, p.config.ReadyTimeout); err != nil {
		return
	}
	if p.Whoiam, err = p.Ask(ctx, wire.Command(wire.CmdIdentity), wire.TagIdentity, p.config.ProtocolTimeout); err != nil {
		return
	}
	if p.InitPacket, err = p.Ask(ctx, wire.Command(wire.CmdInit), wire.TagInit, p.config.ProtocolTimeout); err != nil {
		return
	}
	glog.Infof("%s: device %q configured", p.Address, p.Whoiam)
	return nil
}

// WriteStart sends the start command with the wall clock and switches
// to the configured baud rate.
func (p *Port) WriteStart() error {
	start := p.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	if err := p.WriteCommand(wire.StartCommand(start.Unix())); err != nil {
		return err
	}
	if p.config.BaudRate == 0 || p.config.BaudRate == wire.DefaultBaudRate {
		return nil
	}
	setter, ok := p.conn.(bridge.BaudSetter)
	if !ok {
		return fmt.Errorf("%s: %v", p.Address, bridge.ErrBaudUnsupported)
	}
	time.Sleep(10 * time.Millisecond)
	return setter.SetBaudRate(p.config.BaudRate)
}

// Stop sends the stop command and closes the port.
// Stopping a closed port does nothing.
func (p *Port) Stop() error {
	p.writeLock.Lock()
	closed := p.closed
	p.writeLock.Unlock()
	if closed {
		return nil
	}
	err := p.WriteCommand(wire.Command(wire.CmdStop))
	if closeErr := p.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes the port.
func (p *Port) Close() error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}
