package host

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial/enumerator"

	"github.com/robotalks/serialbridge/pkg/framework"
)

// ListFunc lists candidate port addresses.
type ListFunc func() ([]string, error)

// OpenFunc opens a port address.
type OpenFunc func(address string) (*Port, error)

// ListUSBPorts lists the USB serial ports.
func ListUSBPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, port := range ports {
		if port.IsUSB {
			glog.V(2).Infof("found USB port %s (%s:%s %s)", port.Name, port.VID, port.PID, port.Product)
			addrs = append(addrs, port.Name)
		}
	}
	return addrs, nil
}

// Factory discovers devices and hands out their configured ports.
type Factory struct {
	List ListFunc
	Open OpenFunc

	config *Config
	lock   sync.Mutex
	ports  map[string][]*Port
}

// NewFactory creates a Factory probing USB serial ports.
func (c *Config) NewFactory() *Factory {
	return &Factory{List: ListUSBPorts, Open: c.OpenPort, config: c}
}

// Configure opens all listed ports and runs the handshake on each of
// them concurrently. Ports failing the handshake are closed and skipped.
func (f *Factory) Configure(ctx context.Context) error {
	addrs, err := f.List()
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return ErrNoAddresses
	}
	var wg sync.WaitGroup
	results := make([]*Port, len(addrs))
	errs := make([]error, len(addrs))
	for n, addr := range addrs {
		wg.Add(1)
		go func(n int, addr string) {
			defer wg.Done()
			results[n], errs[n] = f.configure(ctx, addr)
		}(n, addr)
	}
	wg.Wait()

	ports := make(map[string][]*Port)
	var failures framework.AggregatedError
	for n, port := range results {
		if errs[n] != nil {
			glog.Warningf("%s: %v", addrs[n], errs[n])
			failures.Add(errs[n])
			continue
		}
		ports[port.Whoiam] = append(ports[port.Whoiam], port)
	}
	f.lock.Lock()
	f.ports = ports
	f.lock.Unlock()
	if len(ports) == 0 {
		return failures.Aggregate()
	}
	return nil
}

func (f *Factory) configure(ctx context.Context, addr string) (*Port, error) {
	port, err := f.Open(addr)
	if err != nil {
		return nil, err
	}
	if f.config.BootDelay > 0 {
		select {
		case <-time.After(f.config.BootDelay):
		case <-ctx.Done():
			port.Close()
			return nil, ctx.Err()
		}
	}
	if err = port.Handshake(ctx); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Identities returns the identities of configured ports, sorted.
func (f *Factory) Identities() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	ids := make([]string, 0, len(f.ports))
	for id := range f.ports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get takes a configured port out of the Factory.
func (f *Factory) Get(whoiam string) (*Port, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.ports == nil {
		return nil, ErrNotConfigured
	}
	ports := f.ports[whoiam]
	if len(ports) == 0 {
		return nil, ErrUnknownDevice
	}
	port := ports[0]
	if len(ports) == 1 {
		delete(f.ports, whoiam)
	} else {
		f.ports[whoiam] = ports[1:]
	}
	return port, nil
}

// NewDevice takes a configured port and creates a Device on it.
func (f *Factory) NewDevice(whoiam string) (*Device, error) {
	port, err := f.Get(whoiam)
	if err != nil {
		return nil, err
	}
	return f.config.NewDevice(port), nil
}

// StopAll stops the ports never handed out.
func (f *Factory) StopAll() error {
	f.lock.Lock()
	ports := f.ports
	f.ports = make(map[string][]*Port)
	f.lock.Unlock()
	var errs framework.AggregatedError
	for _, list := range ports {
		for _, port := range list {
			errs.Add(port.Stop())
		}
	}
	return errs.Aggregate()
}
