// Package clock provides elapsed-time counters for the device Bridge.
package clock

import (
	"sync"
	"time"
)

// Counter is a free-running elapsed-time counter of a fixed bit width
// which wraps around at its modulus, plus a settable wall clock.
type Counter struct {
	Bits       uint
	Resolution time.Duration

	boot time.Time

	wallLock sync.RWMutex
	wallBase time.Time
	wallAt   time.Time
}

// Default counter shape, matching a 32-bit microsecond timer.
const (
	DefaultBits       uint = 32
	DefaultResolution      = time.Microsecond
)

// NewCounter creates a counter starting from zero now.
func NewCounter(bits uint, resolution time.Duration) *Counter {
	if bits == 0 || bits > 64 {
		bits = 64
	}
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	now := time.Now()
	return &Counter{
		Bits:       bits,
		Resolution: resolution,
		boot:       now,
		wallBase:   now,
		wallAt:     now,
	}
}

// NewMicros creates a 32-bit microsecond counter.
func NewMicros() *Counter {
	return NewCounter(DefaultBits, DefaultResolution)
}

// Modulus returns the counter range, 0 meaning 2^64.
func (c *Counter) Modulus() uint64 {
	return Modulus(c.Bits)
}

// Elapsed returns the wrapped counter reading.
func (c *Counter) Elapsed() uint64 {
	ticks := uint64(time.Since(c.boot) / c.Resolution)
	return ticks & Mask(c.Bits)
}

// SetTime sets the wall clock to a unix time in seconds.
func (c *Counter) SetTime(unix int64) {
	c.wallLock.Lock()
	c.wallBase, c.wallAt = time.Unix(unix, 0), time.Now()
	c.wallLock.Unlock()
}

// Now returns the current wall clock time.
func (c *Counter) Now() time.Time {
	c.wallLock.RLock()
	defer c.wallLock.RUnlock()
	return c.wallBase.Add(time.Since(c.wallAt))
}

// Mask returns the bit mask for a counter width.
func Mask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

// Modulus returns 2^bits, 0 meaning 2^64.
func Modulus(bits uint) uint64 {
	if bits >= 64 {
		return 0
	}
	return uint64(1) << bits
}
