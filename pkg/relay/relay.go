package relay

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/framework"
	"github.com/robotalks/serialbridge/pkg/host"
)

// Source produces packets of a device, e.g. *host.Device.
type Source interface {
	framework.Named
	Packets() <-chan *host.Packet
}

// Relay fans packets of sources out to RecordWriters.
type Relay struct {
	writers []RecordWriter
	sources []Source

	writeLock sync.Mutex
	count     uint64
}

// New creates a Relay.
func New(writers ...RecordWriter) *Relay {
	return &Relay{writers: writers}
}

// AddWriter adds more writers.
func (r *Relay) AddWriter(writers ...RecordWriter) *Relay {
	r.writers = append(r.writers, writers...)
	return r
}

// AddSource adds sources to be relayed by Run.
func (r *Relay) AddSource(sources ...Source) *Relay {
	r.sources = append(r.sources, sources...)
	return r
}

// Count returns the number of records written.
func (r *Relay) Count() uint64 {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	return r.count
}

// Write writes a record to all writers. A failing writer doesn't
// prevent the others from receiving the record.
func (r *Relay) Write(rec *Record) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	var errs framework.AggregatedError
	for _, w := range r.writers {
		errs.Add(w.WriteRecord(rec))
	}
	r.count++
	return errs.Aggregate()
}

// Run implements framework.Runnable.
// It returns when all sources are drained or ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, src := range r.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			r.relay(ctx, src)
		}(src)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Relay) relay(ctx context.Context, src Source) {
	name := src.Name()
	packets := src.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-packets:
			if !ok {
				glog.V(1).Infof("relay %s drained", name)
				return
			}
			if err := r.Write(NewRecord(name, p)); err != nil {
				glog.Warningf("relay %s: %v", name, err)
			}
		}
	}
}
