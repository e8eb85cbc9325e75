// Package device provides a demo application on the device Bridge.
package device

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/framework"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Config defines the demo application.
type Config struct {
	Identity string
	Period   time.Duration
}

var defaultConfig = Config{
	Identity: "COUNTER",
	Period:   time.Second,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Identity, "identity", defaultConfig.Identity, "Device identity answered to whoiam.")
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Interval of counter records while running.")
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

// App emits a counter record every Period while the device runs and
// echoes data lines back as records.
type App struct {
	Bridge *bridge.Bridge
	Period time.Duration

	count   int64
	started time.Time
	last    time.Time
	now     func() time.Time
}

// NewApp creates the App on a Bridge and registers its init payload.
func (c *Config) NewApp(b *bridge.Bridge) (*App, error) {
	a := &App{Bridge: b, Period: c.Period, now: time.Now}
	if err := b.SetInitData("ds", wire.Int(int64(c.Period/time.Millisecond)), wire.Text("counter")); err != nil {
		return nil, err
	}
	return a, nil
}

// Control implements framework.Controller.
// A closed Channel ends the loop.
func (a *App) Control(ctx context.Context) error {
	if a.Bridge.Available() {
		sig, err := a.Bridge.Read()
		if err == io.EOF {
			glog.Info("channel closed")
			return framework.ErrStopLoop
		}
		if err != nil {
			return err
		}
		if err = a.handle(sig); err != nil {
			return err
		}
	}
	if a.Bridge.Paused() {
		return nil
	}
	if now := a.now(); now.Sub(a.last) >= a.Period {
		a.last = now
		err := a.Bridge.WriteValues("counter", wire.Int(a.count), wire.Float(now.Sub(a.started).Seconds()))
		a.count++
		return err
	}
	return nil
}

func (a *App) handle(sig bridge.Signal) error {
	switch sig {
	case bridge.SignalStarted:
		glog.Info("started")
		a.count, a.started, a.last = 0, a.now(), time.Time{}
	case bridge.SignalStopped:
		glog.Infof("stopped after %d records", a.count)
	case bridge.SignalData:
		return a.Bridge.WriteValues("echo", wire.Text(a.Bridge.Command()))
	case bridge.SignalNone:
	default:
		glog.V(1).Infof("signal %s", sig)
	}
	return nil
}
