package bridge

import (
	"flag"
	"time"

	"github.com/robotalks/serialbridge/pkg/wire"
)

// Config defines the link-level constants of a Bridge.
type Config struct {
	// PacketEnd terminates every outbound frame.
	PacketEnd byte
	// IdleDelay is slept before each read while paused.
	IdleDelay time.Duration
	// DebugEcho writes every received line back to the host.
	DebugEcho bool
	// ResetsOnConnect disables the hello/ready commands, for devices
	// which reset when the host opens the port.
	ResetsOnConnect bool
	// FloatPrecision is the number of decimals printed for floats.
	FloatPrecision int
	// MinEpoch is the smallest wall clock accepted by the start command.
	MinEpoch int64
}

var defaultConfig = Config{
	PacketEnd:      wire.DefaultPacketEnd,
	IdleDelay:      100 * time.Millisecond,
	FloatPrecision: wire.DefaultFloatPrecision,
	MinEpoch:       wire.MinEpoch,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.DebugEcho, "debug-echo", defaultConfig.DebugEcho, "Echo every received line back to the host.")
	flag.BoolVar(&defaultConfig.ResetsOnConnect, "resets-on-connect", defaultConfig.ResetsOnConnect, "Device resets on connection, disable hello/ready.")
	flag.DurationVar(&defaultConfig.IdleDelay, "idle-delay", defaultConfig.IdleDelay, "Delay before each read while paused.")
	flag.IntVar(&defaultConfig.FloatPrecision, "float-precision", defaultConfig.FloatPrecision, "Decimals printed for floating-point fields.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewBridge creates a Bridge using the config.
func (c *Config) NewBridge(identifier string, ch Channel, clk Clock) *Bridge {
	b := New(identifier, ch, clk)
	b.config = *c
	return b
}
