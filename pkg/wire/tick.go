package wire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTick is the timestamp frame preceding each data record.
type ClockTick struct {
	// Overflows counts the wraparounds of the device counter.
	Overflows uint64
	// Elapsed is the raw counter reading.
	Elapsed uint64
	// Sequence is the global sequence number of the frame.
	Sequence uint64
}

// AppendTo appends the encoded frame terminated by end.
func (t ClockTick) AppendTo(dst []byte, end byte) []byte {
	dst = append(dst, TagClockTick...)
	dst = strconv.AppendUint(dst, t.Overflows, 10)
	dst = append(dst, ':')
	dst = strconv.AppendUint(dst, t.Elapsed, 10)
	dst = append(dst, ':')
	dst = AppendUint64(dst, t.Sequence)
	return append(dst, end)
}

// Ticks extends the counter reading with the overflow count.
// modulus is the counter range, 0 meaning 2^64.
func (t ClockTick) Ticks(modulus uint64) uint64 {
	return t.Overflows*modulus + t.Elapsed
}

// Duration converts the extended counter to a duration since boot.
func (t ClockTick) Duration(modulus uint64, resolution time.Duration) time.Duration {
	return time.Duration(t.Ticks(modulus)) * resolution
}

// ParseClockTick parses a packet (without terminator).
// ok is false if the packet is not a clock tick.
func ParseClockTick(packet string) (t ClockTick, ok bool, err error) {
	if !HasHeader(packet, TagClockTick) {
		return
	}
	ok = true
	fields := strings.Split(packet[len(TagClockTick):], ":")
	if len(fields) != 4 {
		err = fmt.Errorf("invalid clock tick %q", packet)
		return
	}
	if t.Overflows, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
		return
	}
	if t.Elapsed, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
		return
	}
	t.Sequence, err = ParseUint64(fields[2] + ":" + fields[3])
	return
}
