package channel

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/serialbridge/pkg/wire"
)

// Config defines how a serial port is opened.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

var defaultConfig = Config{
	BaudRate:    wire.DefaultBaudRate,
	ReadTimeout: 100 * time.Millisecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "port", defaultConfig.Device, "Serial port device, e.g. /dev/ttyGS0. Empty for stdin/stdout.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial port baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial port read timeout, 0 to block.")
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

// Port is an opened serial port.
type Port struct {
	serial.Port
	Device string
}

// SetBaudRate implements bridge.BaudSetter.
func (p *Port) SetBaudRate(rate int) error {
	return p.SetMode(Mode(rate))
}

// Mode returns the 8N1 mode at a baud rate.
func Mode(baudRate int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenPort opens the serial port.
func (c *Config) OpenPort() (*Port, error) {
	port, err := serial.Open(c.Device, Mode(c.BaudRate))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", c.Device, err)
	}
	timeout := c.ReadTimeout
	if timeout <= 0 {
		timeout = serial.NoTimeout
	}
	if err = port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %v", c.Device, err)
	}
	glog.Infof("opened %s at %d baud", c.Device, c.BaudRate)
	return &Port{Port: port, Device: c.Device}, nil
}

// Open opens the serial port as a Line channel.
func (c *Config) Open() (*Line, error) {
	port, err := c.OpenPort()
	if err != nil {
		return nil, err
	}
	return NewLine(port), nil
}
