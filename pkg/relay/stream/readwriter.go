// Package stream carries packets over a byte stream.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// MaxPacketSize limits the size of a packet read.
const MaxPacketSize = 1 << 20

// ErrPacketTooLarge indicates the length prefix exceeds MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements relay.PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter

	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
// The prefix and the packet are written in a single Write.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	_, err := p.Write(append(buf, pkt...))
	return err
}

// Close closes the underlying stream if it's an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
