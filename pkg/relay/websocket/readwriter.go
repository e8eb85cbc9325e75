// Package websocket broadcasts records to websocket clients.
package websocket

import "golang.org/x/net/websocket"

// ReadWriter implements relay.PacketReadWriter with text frames.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var msg string
	err := websocket.Message.Receive((*websocket.Conn)(p), &msg)
	return []byte(msg), err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), string(pkt))
}

// Close closes the connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
