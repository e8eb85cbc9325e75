package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/serialbridge/pkg/framework"
	"github.com/robotalks/serialbridge/pkg/relay"
)

// DefaultQueueSize is the number of records buffered per client.
const DefaultQueueSize = 64

// Hub broadcasts records as JSON to all connected clients.
// A client not keeping up loses records.
type Hub struct {
	QueueSize int

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	rw      *ReadWriter
	packets chan []byte
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{QueueSize: DefaultQueueSize, clients: make(map[*client]struct{})}
}

// Handler returns the http.Handler accepting websocket connections.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// WriteRecord implements relay.RecordWriter.
func (h *Hub) WriteRecord(rec *relay.Record) error {
	pkt, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.packets <- pkt:
		default:
			glog.V(1).Infof("websocket %s: dropped %s", c.addr(), rec.Topic())
		}
	}
	return nil
}

// Serve creates a Runnable serving the hub on addr.
func (h *Hub) Serve(addr string) framework.Runnable {
	return framework.RunFunc(func(ctx context.Context) error {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		glog.Infof("websocket listening on %s", ln.Addr())
		server := &http.Server{Handler: h.Handler()}
		err = framework.RunWithContextCancel(ctx, func() {
			server.Close()
		}, func() error {
			return server.Serve(ln)
		})
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	})
}

func (h *Hub) serve(conn *websocket.Conn) {
	size := h.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &client{rw: New(conn), packets: make(chan []byte, size)}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	glog.V(1).Infof("websocket %s connected", c.addr())

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, err := c.rw.ReadPacket(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
		c.rw.Close()
		glog.V(1).Infof("websocket %s disconnected", c.addr())
	}()
	for {
		select {
		case <-closed:
			return
		case pkt := <-c.packets:
			if err := c.rw.WritePacket(pkt); err != nil {
				return
			}
		}
	}
}

func (c *client) addr() string {
	return (*websocket.Conn)(c.rw).Request().RemoteAddr
}
