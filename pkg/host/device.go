package host

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/wire"
)

// Device runs a configured Port: it starts the device, decodes packets
// and feeds queued commands.
type Device struct {
	Port *Port
	// FirstPacket is decoded from the init payload by Start.
	FirstPacket *Packet

	config  *Config
	packets chan *Packet

	writeLock  sync.Mutex
	writes     list.List
	pauseUntil time.Time

	tick       wire.ClockTick
	deviceTime time.Duration
	ticked     bool
}

type writeEntry struct {
	command string
	pause   bool
	wait    time.Duration
	until   time.Time
}

// NewDevice creates a Device on a configured Port.
func (c *Config) NewDevice(port *Port) *Device {
	size := c.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Device{Port: port, config: c, packets: make(chan *Packet, size)}
}

// Name implements framework.Named.
func (d *Device) Name() string {
	return d.Port.Whoiam
}

// Packets returns the channel of decoded packets.
// It's closed when Run returns.
func (d *Device) Packets() <-chan *Packet {
	return d.packets
}

// Sequence returns the sequence number of the last clock tick,
// -1 before the first one.
func (d *Device) Sequence() int64 {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()
	if !d.ticked {
		return -1
	}
	return int64(d.tick.Sequence)
}

// Start decodes the init payload into FirstPacket.
// An empty payload gives no FirstPacket.
func (d *Device) Start() (*Packet, error) {
	if d.Port.InitPacket == "" {
		return nil, nil
	}
	rec, err := wire.ParseInit(d.Port.InitPacket)
	if err != nil {
		return nil, err
	}
	d.FirstPacket = &Packet{
		Name:        FirstPacketName,
		Format:      rec.Format,
		Values:      rec.Values,
		ReceiveTime: d.Port.StartTime,
		Sequence:    -1,
	}
	return d.FirstPacket, nil
}

// Run implements framework.Runnable.
// It sends the start command, polls until the device stops, ctx is done
// or an error occurs, then stops the device.
func (d *Device) Run(ctx context.Context) (err error) {
	defer close(d.packets)
	defer func() {
		if stopErr := d.Port.Stop(); stopErr != nil {
			glog.V(1).Infof("%s: stop: %v", d.Port.Address, stopErr)
		}
	}()
	if err = d.Port.WriteStart(); err != nil {
		return
	}
	glog.Infof("%s: device %q started", d.Port.Address, d.Port.Whoiam)
	for {
		if err = d.poll(ctx); err != nil {
			return
		}
		if err = d.flushWrites(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.config.PollInterval):
		}
	}
}

func (d *Device) poll(ctx context.Context) error {
	receiveTime, packets, err := d.Port.ReadPackets()
	if err != nil {
		return err
	}
	for _, packet := range packets {
		if packet == "" {
			continue
		}
		tick, ok, err := wire.ParseClockTick(packet)
		if ok {
			if err != nil {
				return err
			}
			d.writeLock.Lock()
			d.tick, d.ticked = tick, true
			d.writeLock.Unlock()
			d.deviceTime = d.config.DeviceTime(tick)
			continue
		}
		if header, ok := wire.HandshakeHeader(packet); ok {
			if header == wire.TagStopping {
				return ErrDeviceStopped
			}
			glog.Warningf("%s: misplaced protocol packet %q", d.Port.Address, packet)
			continue
		}
		rec, err := wire.ParseRecord(packet)
		if err != nil {
			return err
		}
		p := &Packet{
			Name:        rec.Name,
			Format:      rec.Format,
			Values:      rec.Values,
			ReceiveTime: receiveTime,
			DeviceTime:  d.deviceTime,
			Sequence:    d.Sequence(),
		}
		select {
		case d.packets <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Write queues a command line.
func (d *Device) Write(command string) {
	d.enqueue(&writeEntry{command: command})
}

// WritePause queues a pause relative to when it's reached.
func (d *Device) WritePause(duration time.Duration) {
	d.enqueue(&writeEntry{pause: true, wait: duration})
}

// WritePauseUntil queues a pause until an absolute time.
func (d *Device) WritePauseUntil(t time.Time) {
	d.enqueue(&writeEntry{pause: true, until: t})
}

// ClearWriteQueue drops the queued commands and the active pause.
func (d *Device) ClearWriteQueue() {
	d.writeLock.Lock()
	d.writes.Init()
	d.pauseUntil = time.Time{}
	d.writeLock.Unlock()
}

// QueuedWrites returns the number of queued entries.
func (d *Device) QueuedWrites() int {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()
	return d.writes.Len()
}

func (d *Device) enqueue(entry *writeEntry) {
	d.writeLock.Lock()
	d.writes.PushBack(entry)
	d.writeLock.Unlock()
}

func (d *Device) flushWrites() error {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()
	now := time.Now()
	if !d.pauseUntil.IsZero() {
		if now.Before(d.pauseUntil) {
			return nil
		}
		d.pauseUntil = time.Time{}
	}
	for d.writes.Len() > 0 {
		entry := d.writes.Remove(d.writes.Front()).(*writeEntry)
		if !entry.pause {
			if err := d.Port.WriteCommand(entry.command); err != nil {
				return err
			}
			continue
		}
		if d.pauseUntil = entry.until; d.pauseUntil.IsZero() {
			d.pauseUntil = now.Add(entry.wait)
		}
		if now.Before(d.pauseUntil) {
			return nil
		}
		d.pauseUntil = time.Time{}
	}
	return nil
}
