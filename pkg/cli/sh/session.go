package sh

import (
	"context"
	"errors"
	"time"

	"github.com/robotalks/serialbridge/pkg/host"
	"github.com/robotalks/serialbridge/pkg/relay"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// ErrNotOpen indicates no port is open.
var ErrNotOpen = errors.New("no port open")

// Session talks to one port by hand.
type Session struct {
	Config *host.Config
	List   host.ListFunc
	Open   host.OpenFunc
	Port   *host.Port

	tick   wire.ClockTick
	ticked bool
}

// Item is a packet read by the session, decoded when possible.
type Item struct {
	Packet string
	Tick   *wire.ClockTick
	Record *relay.Record
	Err    error
}

var askHeaders = map[byte]string{
	wire.CmdHello:    wire.TagHello,
	wire.CmdReady:    wire.TagReady,
	wire.CmdIdentity: wire.TagIdentity,
	wire.CmdInit:     wire.TagInit,
}

// NewSession creates a Session on serial ports.
func NewSession(conf *host.Config) *Session {
	return &Session{Config: conf, List: host.ListUSBPorts, Open: conf.OpenPort}
}

// OpenPort opens a port, closing the current one.
func (s *Session) OpenPort(addr string) error {
	port, err := s.Open(addr)
	if err != nil {
		return err
	}
	s.Close()
	s.Port = port
	s.ticked = false
	return nil
}

// Close closes the current port.
func (s *Session) Close() error {
	if s.Port == nil {
		return nil
	}
	err := s.Port.Close()
	s.Port = nil
	return err
}

// Ask sends a handshake command and waits for its response.
func (s *Session) Ask(ctx context.Context, cmd byte) (string, error) {
	if s.Port == nil {
		return "", ErrNotOpen
	}
	header, ok := askHeaders[cmd]
	if !ok {
		return "", errors.New("not a handshake command: " + wire.Command(cmd))
	}
	timeout := s.Config.ProtocolTimeout
	if cmd == wire.CmdReady {
		timeout = s.Config.ReadyTimeout
	}
	return s.Port.Ask(ctx, wire.Command(cmd), header, timeout)
}

// Handshake runs the full handshake.
func (s *Session) Handshake(ctx context.Context) error {
	if s.Port == nil {
		return ErrNotOpen
	}
	return s.Port.Handshake(ctx)
}

// Start sends the start command.
func (s *Session) Start() error {
	if s.Port == nil {
		return ErrNotOpen
	}
	return s.Port.WriteStart()
}

// Stop sends the stop command, keeping the port open.
func (s *Session) Stop() error {
	return s.Send(wire.Command(wire.CmdStop))
}

// Send sends a raw line.
func (s *Session) Send(line string) error {
	if s.Port == nil {
		return ErrNotOpen
	}
	return s.Port.WriteCommand(line)
}

// Read reads packets for the duration.
func (s *Session) Read(ctx context.Context, duration time.Duration) ([]Item, error) {
	if s.Port == nil {
		return nil, ErrNotOpen
	}
	var items []Item
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		receiveTime, packets, err := s.Port.ReadPackets()
		if err != nil {
			return items, err
		}
		for _, packet := range packets {
			if packet != "" {
				items = append(items, s.decode(packet, receiveTime))
			}
		}
		select {
		case <-ctx.Done():
			return items, ctx.Err()
		default:
		}
	}
	return items, nil
}

func (s *Session) decode(packet string, receiveTime time.Time) Item {
	item := Item{Packet: packet}
	if tick, ok, err := wire.ParseClockTick(packet); ok {
		if item.Err = err; err == nil {
			s.tick, s.ticked = tick, true
			item.Tick = &tick
		}
		return item
	}
	if wire.IsCommand(packet) {
		return item
	}
	rec, err := wire.ParseRecord(packet)
	if err != nil {
		item.Err = err
		return item
	}
	item.Record = &relay.Record{
		Device:      s.Port.Whoiam,
		Name:        rec.Name,
		Format:      rec.Format,
		Values:      rec.Values,
		ReceiveTime: receiveTime,
		Sequence:    -1,
	}
	if s.ticked {
		item.Record.Sequence = int64(s.tick.Sequence)
		item.Record.DeviceTime = s.Config.DeviceTime(s.tick)
	}
	return item
}
