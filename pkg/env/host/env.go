// Package host sets up the host daemon from flags, environment and a
// YAML config file.
package host

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/serialbridge/pkg/env"
	"github.com/robotalks/serialbridge/pkg/framework"
	"github.com/robotalks/serialbridge/pkg/host"
	"github.com/robotalks/serialbridge/pkg/relay"
	"github.com/robotalks/serialbridge/pkg/relay/mqtt"
	"github.com/robotalks/serialbridge/pkg/relay/stream"
	"github.com/robotalks/serialbridge/pkg/relay/websocket"
)

// Config defines the host daemon.
type Config struct {
	// HostID identifies the host, defaults to the machine ID.
	HostID string `yaml:"host_id"`
	// Devices lists the identities to start, all when empty.
	Devices []string `yaml:"devices"`
	// Ports lists the port addresses to probe, USB ports when empty.
	Ports []string `yaml:"ports"`
	// MQTTBrokerURL is the broker to publish to,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// MQTTQoS is the QoS of published records.
	MQTTQoS byte `yaml:"mqtt_qos"`
	// WebsocketAddr is the listen address of the websocket hub.
	WebsocketAddr string `yaml:"websocket"`
	// StreamFile receives length-prefixed records, "-" for stdout.
	StreamFile string `yaml:"stream"`
	// Protocol configures the host side protocol.
	Protocol host.Config `yaml:"protocol"`
}

var defaultConfig = Config{
	Protocol: *host.Default(),
}

func init() {
	if val := os.Getenv("SB_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SB_WS_ADDR"); val != "" {
		defaultConfig.WebsocketAddr = val
	}
	if val := os.Getenv("SB_HOST_ID"); val != "" {
		defaultConfig.HostID = val
	}
}

type stringsValue struct {
	values *[]string
}

func (v stringsValue) String() string {
	if v.values == nil {
		return ""
	}
	return fmt.Sprint(*v.values)
}

func (v stringsValue) Set(s string) error {
	*v.values = append(*v.values, s)
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.HostID, "host-id", defaultConfig.HostID, "Host ID, defaults to the machine ID.")
	flag.Var(stringsValue{&defaultConfig.Devices}, "device", "Device identity to start, repeatable. All devices when absent.")
	flag.Var(stringsValue{&defaultConfig.Ports}, "port", "Serial port to probe, repeatable. USB ports when absent.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address.")
	flag.StringVar(&defaultConfig.StreamFile, "stream", defaultConfig.StreamFile, "File receiving length-prefixed records, - for stdout.")
	flag.DurationVar(&defaultConfig.Protocol.ProtocolTimeout, "protocol-timeout", defaultConfig.Protocol.ProtocolTimeout, "Timeout of each handshake step.")
	flag.DurationVar(&defaultConfig.Protocol.ReadyTimeout, "ready-timeout", defaultConfig.Protocol.ReadyTimeout, "Timeout of the ready handshake step.")
	flag.IntVar(&defaultConfig.Protocol.BaudRate, "start-baud", defaultConfig.Protocol.BaudRate, "Baud rate used after the device is started.")
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

// LoadFile merges a YAML config file into the config.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Load(data)
}

// Load merges YAML content into the config.
func (c *Config) Load(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	if c.MQTTQoS > 2 {
		return fmt.Errorf("invalid mqtt_qos %d", c.MQTTQoS)
	}
	return nil
}

// Env is the running environment of the host daemon.
type Env struct {
	Config  *Config
	Factory *host.Factory
	Relay   *relay.Relay
	Devices []*host.Device

	Publisher *mqtt.Publisher
	Hub       *websocket.Hub
	Stream    *stream.ReadWriter

	services []framework.Runnable
	closers  []io.Closer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.HostID == "" {
		c.HostID = env.MachineID()
	}
	e := &Env{
		Config:  c,
		Factory: c.Protocol.NewFactory(),
		Relay:   relay.New(),
	}
	if len(c.Ports) > 0 {
		ports := append([]string(nil), c.Ports...)
		e.Factory.List = func() ([]string, error) { return ports, nil }
	}
	if c.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, c.HostID)
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %v", err)
		}
		pub.QoS = c.MQTTQoS
		e.Publisher = pub
		e.Relay.AddWriter(pub)
		e.services = append(e.services, framework.NamedRun("mqtt", pub))
	}
	if c.WebsocketAddr != "" {
		e.Hub = websocket.NewHub()
		e.Relay.AddWriter(e.Hub)
		e.services = append(e.services, framework.NamedRun("websocket", e.Hub.Serve(c.WebsocketAddr)))
	}
	if c.StreamFile != "" {
		var w io.ReadWriter = os.Stdout
		if c.StreamFile != "-" {
			f, err := os.Create(c.StreamFile)
			if err != nil {
				return nil, err
			}
			w = f
			e.closers = append(e.closers, f)
		}
		e.Stream = stream.New(w)
		e.Relay.AddWriter(&relay.PacketRecordWriter{Writer: e.Stream})
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// Start configures the ports and creates the requested Devices.
// The first packets are relayed right away.
func (e *Env) Start(ctx context.Context) error {
	if err := e.Factory.Configure(ctx); err != nil {
		return err
	}
	ids := e.Config.Devices
	if len(ids) == 0 {
		ids = e.Factory.Identities()
	}
	var errs framework.AggregatedError
	for _, id := range ids {
		dev, err := e.Factory.NewDevice(id)
		if err != nil {
			errs.Add(fmt.Errorf("%s: %w", id, err))
			continue
		}
		first, err := dev.Start()
		if err != nil {
			dev.Port.Close()
			errs.Add(fmt.Errorf("%s: %w", id, err))
			continue
		}
		var init *relay.Record
		if first != nil {
			init = relay.NewRecord(id, first)
			if err := e.Relay.Write(init); err != nil {
				glog.Warningf("relay %s: %v", init.Topic(), err)
			}
		}
		if e.Publisher != nil {
			meta := mqtt.DeviceMeta{Whoiam: id, Address: dev.Port.Address, Started: time.Now(), Init: init}
			if err := e.Publisher.AddDevice(meta); err != nil {
				glog.Warningf("publish meta of %s: %v", id, err)
			}
		}
		e.Devices = append(e.Devices, dev)
		e.Relay.AddSource(dev)
	}
	if err := e.Factory.StopAll(); err != nil {
		glog.Warningf("stop unused ports: %v", err)
	}
	if len(e.Devices) == 0 {
		if err := errs.Aggregate(); err != nil {
			return err
		}
		return host.ErrUnknownDevice
	}
	for _, err := range errs.Errors {
		glog.Warning(err)
	}
	return nil
}

// Run implements framework.Runnable.
// It runs the services, the Devices and the Relay until all Devices
// stop or ctx is done.
func (e *Env) Run(ctx context.Context) error {
	services := framework.NewRunnerWith(ctx)
	services.Go(e.services...)
	devices := framework.NewRunnerWith(services.Context)
	for _, dev := range e.Devices {
		devices.Go(framework.NamedRun(dev.Name(), runDevice(dev)))
	}
	devices.Go(framework.NamedRun("relay", e.Relay))
	var errs framework.AggregatedError
	errs.Add(devices.Wait())
	services.Stop()
	errs.Add(services.Wait())
	for _, closer := range e.closers {
		errs.Add(closer.Close())
	}
	return errs.Aggregate()
}

func runDevice(dev *host.Device) framework.Runnable {
	return framework.RunFunc(func(ctx context.Context) error {
		err := dev.Run(ctx)
		if errors.Is(err, host.ErrDeviceStopped) {
			glog.Infof("device %s stopped", dev.Name())
			return nil
		}
		return err
	})
}
