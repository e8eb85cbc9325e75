package bridge

import (
	"github.com/robotalks/serialbridge/pkg/wire"
)

// SetInitData registers the init payload answered to get-init.
// The previous payload is replaced as a whole, and kept when the values
// don't match the format.
func (b *Bridge) SetInitData(format string, values ...wire.Value) error {
	payload, err := wire.AppendFields(nil, format, values, b.config.FloatPrecision, b.config.PacketEnd)
	if err != nil {
		return err
	}
	b.initPayload = string(payload)
	return nil
}

// SetInitValues is SetInitData with the format derived from values.
func (b *Bridge) SetInitValues(values ...wire.Value) error {
	return b.SetInitData(wire.FormatOf(values), values...)
}

// WriteHello sends the hello frame.
func (b *Bridge) WriteHello() error {
	return b.emit(b.frame(wire.TagHello, ""))
}

// WriteReady sends the ready frame.
func (b *Bridge) WriteReady() error {
	return b.emit(b.frame(wire.TagReady, ""))
}

// WriteTime sends a clock tick frame.
func (b *Bridge) WriteTime() error {
	return b.emit(b.appendTick(nil))
}

// Write sends a data record preceded by a clock tick frame.
// Nothing is sent, and no sequence number is used, if the values don't
// match the format.
func (b *Bridge) Write(name string, format string, values ...wire.Value) error {
	record := append([]byte(name), '\t')
	record, err := wire.AppendFields(record, format, values, b.config.FloatPrecision, b.config.PacketEnd)
	if err != nil {
		return err
	}
	return b.emit(append(b.appendTick(nil), record...))
}

// WriteValues is Write with the format derived from values.
func (b *Bridge) WriteValues(name string, values ...wire.Value) error {
	return b.Write(name, wire.FormatOf(values), values...)
}

func (b *Bridge) writeIdentity() error {
	return b.emit(b.frame(wire.TagIdentity, b.identifier))
}

func (b *Bridge) writeInit() error {
	return b.emit(append([]byte(wire.TagInit), b.initPayload...))
}

// appendTick updates the clock state and appends the tick frame.
// Wraparound is detected before the values of this frame are chosen.
func (b *Bridge) appendTick(dst []byte) []byte {
	elapsed := b.clock.Elapsed()
	if elapsed < b.prevElapsed {
		b.overflows++
	}
	tick := wire.ClockTick{
		Overflows: b.overflows,
		Elapsed:   elapsed,
		Sequence:  b.sequence,
	}
	b.prevElapsed = elapsed
	b.sequence++
	return tick.AppendTo(dst, b.config.PacketEnd)
}

func (b *Bridge) frame(tag, body string) []byte {
	buf := make([]byte, 0, len(tag)+len(body)+1)
	buf = append(buf, tag...)
	buf = append(buf, body...)
	return append(buf, b.config.PacketEnd)
}

func (b *Bridge) emit(frame []byte) error {
	_, err := b.channel.Write(frame)
	return err
}
