package host

import (
	"flag"
	"time"

	"github.com/robotalks/serialbridge/pkg/clock"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Config defines protocol timing and decoding parameters on the host.
type Config struct {
	// BaudRate is switched to after the start command, if it differs
	// from wire.DefaultBaudRate.
	BaudRate int `yaml:"baud"`
	// ProtocolTimeout bounds each handshake step.
	ProtocolTimeout time.Duration `yaml:"protocol_timeout"`
	// ReadyTimeout bounds the ready step, which waits for device setup.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	// ResendInterval is the pace of re-asking an unanswered command.
	ResendInterval time.Duration `yaml:"resend_interval"`
	// BootDelay is waited after opening a port before the handshake.
	BootDelay time.Duration `yaml:"boot_delay"`
	// ReadTimeout is the serial read timeout used while polling.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// PollInterval is the pause between two polls of a running device.
	PollInterval time.Duration `yaml:"poll_interval"`
	// PacketEnd terminates device frames.
	PacketEnd byte `yaml:"packet_end"`
	// CounterBits and CounterResolution describe the device counter.
	CounterBits       uint          `yaml:"counter_bits"`
	CounterResolution time.Duration `yaml:"counter_resolution"`
	// QueueSize is the capacity of the packet channel of a Device.
	QueueSize int `yaml:"queue_size"`
}

var defaultConfig = Config{
	BaudRate:          wire.DefaultBaudRate,
	ProtocolTimeout:   5 * time.Second,
	ReadyTimeout:      10 * time.Second,
	ResendInterval:    600 * time.Millisecond,
	BootDelay:         500 * time.Millisecond,
	ReadTimeout:       10 * time.Millisecond,
	PollInterval:      time.Millisecond,
	PacketEnd:         wire.DefaultPacketEnd,
	CounterBits:       clock.DefaultBits,
	CounterResolution: clock.DefaultResolution,
	QueueSize:         256,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.BaudRate, "start-baud", defaultConfig.BaudRate, "Baud rate used after the device is started.")
	flag.DurationVar(&defaultConfig.ProtocolTimeout, "protocol-timeout", defaultConfig.ProtocolTimeout, "Timeout of each handshake step.")
	flag.DurationVar(&defaultConfig.ReadyTimeout, "ready-timeout", defaultConfig.ReadyTimeout, "Timeout of the ready handshake step.")
	flag.DurationVar(&defaultConfig.BootDelay, "boot-delay", defaultConfig.BootDelay, "Delay after opening a port before the handshake.")
	flag.UintVar(&defaultConfig.CounterBits, "counter-bits", defaultConfig.CounterBits, "Bit width of the device counter.")
	flag.DurationVar(&defaultConfig.CounterResolution, "counter-resolution", defaultConfig.CounterResolution, "Duration of one device counter tick.")
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

// DeviceTime converts a clock tick into the time since device boot.
func (c *Config) DeviceTime(tick wire.ClockTick) time.Duration {
	return tick.Duration(clock.Modulus(c.CounterBits), c.CounterResolution)
}
