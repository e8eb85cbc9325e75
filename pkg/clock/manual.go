package clock

import "time"

// Manual is a hand-driven counter for tests and simulations.
type Manual struct {
	Bits uint

	reading uint64
	wall    int64
	wallSet int
}

// NewManual creates a Manual counter of the given width.
func NewManual(bits uint) *Manual {
	return &Manual{Bits: bits}
}

// Elapsed returns the current reading.
func (m *Manual) Elapsed() uint64 {
	return m.reading
}

// Set sets the reading, truncated to the counter width.
func (m *Manual) Set(v uint64) *Manual {
	m.reading = v & Mask(m.Bits)
	return m
}

// Advance moves the reading forward, wrapping at the modulus.
func (m *Manual) Advance(d uint64) *Manual {
	return m.Set(m.reading + d)
}

// SetTime records the wall clock.
func (m *Manual) SetTime(unix int64) {
	m.wall = unix
	m.wallSet++
}

// Wall returns the last wall clock set and how many times it was set.
func (m *Manual) Wall() (int64, int) {
	return m.wall, m.wallSet
}

// Now returns the wall clock as time.
func (m *Manual) Now() time.Time {
	return time.Unix(m.wall, 0)
}
