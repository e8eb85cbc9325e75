package mqtt

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/relay"
)

// Broker publishes messages, implemented by Queue.
type Broker interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

type connectionChecker interface {
	Connected() bool
}

// DeviceMeta describes a relayed device, published retained on
// "<device>/meta".
type DeviceMeta struct {
	Whoiam  string        `json:"whoiam"`
	Address string        `json:"address,omitempty"`
	Host    string        `json:"host"`
	Started time.Time     `json:"started"`
	Init    *relay.Record `json:"init,omitempty"`
}

// HostMeta describes the relaying host, published retained on
// "hosts/<host>/meta" and cleared by the last will.
type HostMeta struct {
	Host    string   `json:"host"`
	Devices []string `json:"devices"`
}

// Publisher implements relay.RecordWriter by publishing encoded records
// on "<device>/<name>".
type Publisher struct {
	Broker  Broker
	HostID  string
	QoS     byte
	Timeout time.Duration

	queue   *Queue
	lock    sync.Mutex
	devices map[string]*DeviceMeta
}

// HostMetaTopic is the topic of the host meta.
func HostMetaTopic(hostID string) string {
	return "hosts/" + hostID + "/meta"
}

// DeviceMetaTopic is the topic of the device meta.
func DeviceMetaTopic(whoiam string) string {
	return whoiam + "/meta"
}

// NewPublisher creates a Publisher connecting to brokerURL.
func NewPublisher(brokerURL, hostID string) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+HostMetaTopic(hostID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("serialbridge:" + hostID)
	}
	p := &Publisher{
		HostID:  hostID,
		Timeout: time.Second,
		queue:   NewQueue(opts, topicPrefix),
	}
	p.Broker = p.queue
	p.queue.OnConnect = func(*Queue) { p.publishMeta() }
	return p, nil
}

// Queue returns the underlying Queue, nil if the Broker is external.
func (p *Publisher) Queue() *Queue {
	return p.queue
}

// AddDevice registers a device and publishes its meta.
// When the broker is not connected, the meta is published on connect.
func (p *Publisher) AddDevice(meta DeviceMeta) error {
	if meta.Host == "" {
		meta.Host = p.HostID
	}
	p.lock.Lock()
	if p.devices == nil {
		p.devices = make(map[string]*DeviceMeta)
	}
	p.devices[meta.Whoiam] = &meta
	p.lock.Unlock()
	if c, ok := p.Broker.(connectionChecker); ok && !c.Connected() {
		return nil
	}
	if err := p.publishJSON(DeviceMetaTopic(meta.Whoiam), &meta); err != nil {
		return err
	}
	return p.publishJSON(HostMetaTopic(p.HostID), p.hostMeta())
}

// WriteRecord implements relay.RecordWriter.
func (p *Publisher) WriteRecord(rec *relay.Record) error {
	pkt, err := rec.Encode()
	if err != nil {
		return err
	}
	return WaitToken(p.Broker.PubWith(rec.Topic(), pkt, p.QoS, false), p.Timeout)
}

// Run implements framework.Runnable.
// Retained metas are cleared when ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	if p.queue != nil {
		if err := WaitToken(p.queue.Connect(), 0); err != nil {
			glog.Warningf("mqtt connect: %v", err)
		}
	}
	<-ctx.Done()
	p.clearMeta()
	if p.queue != nil {
		p.queue.Close()
	}
	return nil
}

func (p *Publisher) hostMeta() *HostMeta {
	p.lock.Lock()
	defer p.lock.Unlock()
	meta := &HostMeta{Host: p.HostID, Devices: make([]string, 0, len(p.devices))}
	for whoiam := range p.devices {
		meta.Devices = append(meta.Devices, whoiam)
	}
	sort.Strings(meta.Devices)
	return meta
}

func (p *Publisher) publishMeta() {
	p.lock.Lock()
	metas := make([]*DeviceMeta, 0, len(p.devices))
	for _, meta := range p.devices {
		metas = append(metas, meta)
	}
	p.lock.Unlock()
	for _, meta := range metas {
		if err := p.publishJSON(DeviceMetaTopic(meta.Whoiam), meta); err != nil {
			glog.Warningf("publish meta of %s: %v", meta.Whoiam, err)
		}
	}
	if err := p.publishJSON(HostMetaTopic(p.HostID), p.hostMeta()); err != nil {
		glog.Warningf("publish host meta: %v", err)
	}
}

func (p *Publisher) clearMeta() {
	p.lock.Lock()
	topics := []string{HostMetaTopic(p.HostID)}
	for whoiam := range p.devices {
		topics = append(topics, DeviceMetaTopic(whoiam))
	}
	p.lock.Unlock()
	for _, topic := range topics {
		if err := WaitToken(p.Broker.PubWith(topic, nil, 1, true), p.Timeout); err != nil {
			glog.Warningf("clear %s: %v", topic, err)
		}
	}
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WaitToken(p.Broker.PubWith(topic, payload, 1, true), p.Timeout)
}
